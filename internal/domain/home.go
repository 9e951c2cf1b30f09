package domain

import "time"

// AnonymousUser access identity used when no home token was supplied
const AnonymousUser = "anonymous"

// Home 家庭（home 表）。同一 label 下 revision 最新的一行为当前家庭
type Home struct {
	ID        int64     `db:"id"`
	Label     string    `db:"label"`
	Token     string    `db:"token"`
	Revision  time.Time `db:"revision"`
	RelayID   int64     `db:"netatmoid"`
	HeatGain  float64   `db:"heatgain"`
	HeatLoss  float64   `db:"heatloss"`
	Latitude  float64   `db:"latitude"`
	Longitude float64   `db:"longitude"`
}

// Authorize anonymous access or the home's own token
func (h *Home) Authorize(token string) bool {
	return token == AnonymousUser || (token != "" && token == h.Token)
}

// Relay 加热阀门中继设备（netatmodevice 表）
type Relay struct {
	ID           int64  `db:"id"`
	RefreshToken string `db:"refreshtoken"`
}
