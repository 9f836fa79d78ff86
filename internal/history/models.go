// Package history stores recent ROI predictions, newest first.
package history

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaxRecords is how many records a repository keeps; older ones are
// dropped on write.
const MaxRecords = 100

// Repository errors.
var (
	ErrNoRecords = errors.New("no prediction records")
)

// Record is one persisted ROI calculation. Records are never mutated.
type Record struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"createdAt"`
	Location   string     `json:"location"`
	Input      Input      `json:"input"`
	Prediction Prediction `json:"prediction"`
}

// Input is what the caller asked for.
type Input struct {
	Location     string  `json:"location"`
	MonthlyBill  float64 `json:"monthlyBill"`
	SystemSizeKW float64 `json:"systemSizeKW"`
}

// Prediction is the rounded subset of the ROI metrics kept per record.
type Prediction struct {
	SystemSizeKW            float64 `json:"systemSizeKW"`
	RecommendedSystemSizeKW float64 `json:"recommendedSystemSizeKW"`
	AnnualGeneration        float64 `json:"annualGeneration"`
	OutputCategory          string  `json:"outputCategory"`
	PaybackPeriod           float64 `json:"paybackPeriod"`
	AnnualSavings           float64 `json:"annualSavings"`
	RoiPercent              float64 `json:"roiPercent"`
	CO2Offset               float64 `json:"co2Offset"`
}

// NewID returns a record ID.
func NewID() string {
	return "prd_" + uuid.New().String()[:22]
}

// NormalizeLimit maps limits outside (0, MaxRecords] to MaxRecords.
func NormalizeLimit(limit int) int {
	if limit <= 0 || limit > MaxRecords {
		return MaxRecords
	}
	return limit
}
