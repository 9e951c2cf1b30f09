package config

import "chai-api/internal/domain"

// ProfileDefaults 重置 profile 时写入的初始参数，也用于 XAI 接口的兜底数据
type ProfileDefaults struct {
	ProfileID        int
	Mean1            float64 // bias
	Mean2            float64 // slope
	RegionAngle      float64
	RegionWidth      float64
	RegionHeight     float64
	PredictionBanded [][]float64 // 36 行 (lower, prediction, upper)
}

// band half-width of the prediction interval around the default line
const defaultBandWidth = 1.5

// DefaultProfiles 五个 profile 的默认值，下标 i 对应 profile i+1
func DefaultProfiles() []ProfileDefaults {
	base := []struct {
		mean1, mean2 float64
	}{
		{20.0, -0.10}, // comfort
		{18.0, -0.08}, // eco
		{16.0, -0.05}, // away
		{19.0, -0.12}, // evening
		{15.0, -0.03}, // night
	}
	out := make([]ProfileDefaults, 0, len(base))
	for i, b := range base {
		out = append(out, ProfileDefaults{
			ProfileID:        i + 1,
			Mean1:            b.mean1,
			Mean2:            b.mean2,
			RegionAngle:      0,
			RegionWidth:      2.0,
			RegionHeight:     0.05,
			PredictionBanded: bandFor(b.mean1, b.mean2),
		})
	}
	return out
}

// DefaultProfile defaults for one profile id, false when none are known
func DefaultProfile(profileID int) (ProfileDefaults, bool) {
	all := DefaultProfiles()
	if profileID < 1 || profileID > len(all) {
		return ProfileDefaults{}, false
	}
	return all[profileID-1], true
}

func bandFor(mean1, mean2 float64) [][]float64 {
	rows := make([][]float64, domain.BandRows)
	for price := range rows {
		p := float64(price)*mean2 + mean1
		rows[price] = []float64{p - defaultBandWidth, p, p + defaultBandWidth}
	}
	return rows
}
