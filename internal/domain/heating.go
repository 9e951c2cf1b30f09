package domain

import (
	"fmt"
	"strings"
	"time"
)

// HeatingMode 对外暴露的加热模式
type HeatingMode string

const (
	ModeAuto     HeatingMode = "auto"
	ModeOn       HeatingMode = "on"
	ModeOff      HeatingMode = "off"
	ModeOverride HeatingMode = "override" // internal only: a user target inside auto mode
)

// Mode ids as stored in setpointchange.mode
const (
	ModeIDAuto = 1
	ModeIDOn   = 2
	ModeIDOff  = 3
)

// Fixed valve targets for manual on/off (fully open / fully closed)
const (
	OnTemperature  = 30.0
	OffTemperature = 6.0
)

// Target temperature bounds for an override and timeout bounds in minutes
const (
	MinTargetTemperature = 7.0
	MaxTargetTemperature = 30.0
	MinTimeoutMinutes    = 1
	MaxTimeoutMinutes    = 1440
	DefaultTimeout       = 60
)

// ParseHeatingMode case-insensitive parse of the wire value
func ParseHeatingMode(s string) (HeatingMode, error) {
	switch m := HeatingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeOn, ModeOff, ModeOverride:
		return m, nil
	}
	return "", fmt.Errorf("unknown heating mode %q", s)
}

// ID storage id for the mode; override has none.
func (m HeatingMode) ID() (int, bool) {
	switch m {
	case ModeAuto:
		return ModeIDAuto, true
	case ModeOn:
		return ModeIDOn, true
	case ModeOff:
		return ModeIDOff, true
	}
	return 0, false
}

// HeatingStatus 当前加热状态（每次读取时推导，不持久化）
type HeatingStatus struct {
	Mode        HeatingMode
	Temperature float64
	ExpiresAt   *time.Time // nil in pure auto mode
}

// Manual true for on/off, where no target temperature is reported
func (s HeatingStatus) Manual() bool {
	return s.Mode == ModeOn || s.Mode == ModeOff
}
