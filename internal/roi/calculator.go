package roi

import (
	"errors"
	"fmt"
	"math"

	"github.com/solarroi/solarroi/internal/subsidy"
)

// Fixed model assumptions.
const (
	TariffPerUnit       = 6.0     // ₹ per kWh
	DaysPerMonth        = 30.0    // billing month
	UnitsPerKWPerDay    = 5.0     // kWh generated per installed kW per day
	CostPerKW           = 50000.0 // ₹ installed cost per kW
	SavingsFactor       = 0.9     // share of the bill solar can offset
	HorizonYears        = 20.0
	AvgSunHours         = 5.0
	CO2KgPerKWh         = 0.82
	MinCoverageFactor   = 0.35
	MaxCoverageFactor   = 1.0
	MinWeatherFactor    = 0.75
	MaxWeatherFactor    = 1.15
	ReferencePredicted  = 4.0 // kW signal that maps to weatherFactor 1
	HighGenerationKWh   = 6500.0
	MediumGenerationKWh = 3500.0
	MaxRequestedSizeKW  = 100.0
)

// ErrDegenerateCalculation is returned when the inputs cannot produce a
// finite payback (zero sizing or zero savings).
var ErrDegenerateCalculation = errors.New("degenerate roi calculation")

// OutputCategory buckets annual generation.
type OutputCategory string

const (
	OutputLow    OutputCategory = "Low"
	OutputMedium OutputCategory = "Medium"
	OutputHigh   OutputCategory = "High"
)

// CategoryFor is a step function of annual generation in kWh.
func CategoryFor(annualGenerationKWh float64) OutputCategory {
	switch {
	case annualGenerationKWh >= HighGenerationKWh:
		return OutputHigh
	case annualGenerationKWh >= MediumGenerationKWh:
		return OutputMedium
	default:
		return OutputLow
	}
}

// Params are the inputs of the pure calculation.
type Params struct {
	MonthlyBill float64

	// RequestedSystemSizeKW overrides the recommended size when > 0.
	RequestedSystemSizeKW float64

	Subsidy subsidy.Entry

	// PredictedKw is the generation signal from the predictor.
	PredictedKw float64
}

// Metrics are the full-precision results of a calculation.
type Metrics struct {
	SystemSizeKW            float64
	RecommendedSystemSizeKW float64
	TotalCost               float64
	SubsidyAmount           float64
	NetCost                 float64
	SystemCoverageFactor    float64
	AnnualSavings           float64
	PaybackPeriod           float64
	TwentyYearSavings       float64
	RoiPercent              float64
	BaseAnnualGeneration    float64
	WeatherFactor           float64
	AnnualGeneration        float64
	OutputCategory          OutputCategory
	CO2OffsetTons           float64
}

// Calculate derives sizing, cost, savings, payback and generation from a
// bill, a subsidy entry and a generation signal. It performs no I/O.
func Calculate(p Params) (Metrics, error) {
	var m Metrics

	monthlyUnits := p.MonthlyBill / TariffPerUnit
	dailyUnits := monthlyUnits / DaysPerMonth
	m.RecommendedSystemSizeKW = dailyUnits / UnitsPerKWPerDay
	if !(m.RecommendedSystemSizeKW > 0) || math.IsInf(m.RecommendedSystemSizeKW, 0) {
		return Metrics{}, fmt.Errorf("%w: recommended system size is %v", ErrDegenerateCalculation, m.RecommendedSystemSizeKW)
	}

	m.SystemSizeKW = m.RecommendedSystemSizeKW
	if p.RequestedSystemSizeKW > 0 {
		m.SystemSizeKW = p.RequestedSystemSizeKW
	}

	m.TotalCost = m.SystemSizeKW * CostPerKW
	m.SubsidyAmount = p.Subsidy.Amount(m.TotalCost)
	m.NetCost = m.TotalCost - m.SubsidyAmount

	m.SystemCoverageFactor = clamp(m.SystemSizeKW/m.RecommendedSystemSizeKW, MinCoverageFactor, MaxCoverageFactor)
	m.AnnualSavings = p.MonthlyBill * 12 * SavingsFactor * m.SystemCoverageFactor
	if !(m.AnnualSavings > 0) {
		return Metrics{}, fmt.Errorf("%w: annual savings is %v", ErrDegenerateCalculation, m.AnnualSavings)
	}

	m.PaybackPeriod = m.NetCost / m.AnnualSavings
	m.TwentyYearSavings = m.AnnualSavings*HorizonYears - m.NetCost
	if m.NetCost > 0 {
		m.RoiPercent = m.TwentyYearSavings / m.NetCost * 100
	}

	m.BaseAnnualGeneration = m.SystemSizeKW * AvgSunHours * 365
	m.WeatherFactor = clamp(p.PredictedKw/ReferencePredicted, MinWeatherFactor, MaxWeatherFactor)
	m.AnnualGeneration = m.BaseAnnualGeneration * m.WeatherFactor
	m.OutputCategory = CategoryFor(m.AnnualGeneration)
	m.CO2OffsetTons = m.AnnualGeneration * CO2KgPerKWh / 1000

	if err := m.checkFinite(); err != nil {
		return Metrics{}, err
	}
	return m, nil
}

func (m Metrics) checkFinite() error {
	values := map[string]float64{
		"systemSizeKW":      m.SystemSizeKW,
		"totalCost":         m.TotalCost,
		"subsidyAmount":     m.SubsidyAmount,
		"netCost":           m.NetCost,
		"annualSavings":     m.AnnualSavings,
		"paybackPeriod":     m.PaybackPeriod,
		"twentyYearSavings": m.TwentyYearSavings,
		"roiPercent":        m.RoiPercent,
		"annualGeneration":  m.AnnualGeneration,
		"co2Offset":         m.CO2OffsetTons,
	}
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrDegenerateCalculation, name)
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
