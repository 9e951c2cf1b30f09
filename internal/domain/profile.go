package domain

// BandRows number of price points in a banded prediction
const BandRows = 36

// Profile 价格 -> 温度线性模型（profile 表），按 id 递增版本化
type Profile struct {
	ID               int64       `db:"id"`
	ProfileID        int         `db:"profileid"`
	HomeID           int64       `db:"homeid"`
	SetpointID       *int64      `db:"setpointid"`
	Mean1            float64     `db:"mean1"` // bias
	Mean2            float64     `db:"mean2"` // slope
	ConfidenceRegion []float64   `db:"confidence_region"`
	PredictionBanded [][]float64 `db:"prediction_banded"`
}

// CalculateTemperature temperature = price*mean2 + mean1
func (p *Profile) CalculateTemperature(price float64) float64 {
	return price*p.Mean2 + p.Mean1
}

// StartsGeneration a row without confidence region marks a reset
func (p *Profile) StartsGeneration() bool {
	return p.ConfidenceRegion == nil
}

// Region angle, width, height of the confidence ellipse
func (p *Profile) Region() (angle, width, height float64, ok bool) {
	if len(p.ConfidenceRegion) != 3 {
		return 0, 0, 0, false
	}
	return p.ConfidenceRegion[0], p.ConfidenceRegion[1], p.ConfidenceRegion[2], true
}

// Bands transposes the 36x3 prediction into lower/prediction/upper columns.
func (p *Profile) Bands() (lower, prediction, upper []float64, ok bool) {
	return TransposeBands(p.PredictionBanded)
}

// TransposeBands splits rows of (lower, prediction, upper) into columns.
func TransposeBands(rows [][]float64) (lower, prediction, upper []float64, ok bool) {
	if len(rows) != BandRows {
		return nil, nil, nil, false
	}
	lower = make([]float64, 0, BandRows)
	prediction = make([]float64, 0, BandRows)
	upper = make([]float64, 0, BandRows)
	for _, row := range rows {
		if len(row) != 3 {
			return nil, nil, nil, false
		}
		lower = append(lower, row[0])
		prediction = append(prediction, row[1])
		upper = append(upper, row[2])
	}
	return lower, prediction, upper, true
}

// ProfileGeneration 当前代：最近一次重置（confidence_region 为空的行）及其之后的行
type ProfileGeneration struct {
	StartID   int64 // 0 when the profile was never reset
	ProfileID int
}

// Contains reports whether p belongs to this generation
func (g ProfileGeneration) Contains(p *Profile) bool {
	return p.ProfileID == g.ProfileID && p.ID >= g.StartID
}

// ValidProfileID 1..5
func ValidProfileID(id int) bool {
	return id >= MinProfileID && id <= MaxProfileID
}
