package domain

import "time"

// ReadingKind netatmoreading.roomid
type ReadingKind int

const (
	ReadingThermostatTemperature ReadingKind = 1
	ReadingValveTemperature      ReadingKind = 2
	ReadingValvePercentage       ReadingKind = 3
)

// Reading 传感器读数（netatmoreading 表）
type Reading struct {
	ID      int64       `db:"id"`
	Kind    ReadingKind `db:"roomid"`
	RelayID int64       `db:"netatmoid"`
	Start   time.Time   `db:"start"`
	End     time.Time   `db:"end"`
	Value   float64     `db:"reading"`
}
