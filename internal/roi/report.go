package roi

import (
	"github.com/solarroi/solarroi/internal/advisory"
	"github.com/solarroi/solarroi/internal/generation"
	"github.com/solarroi/solarroi/internal/history"
	"github.com/solarroi/solarroi/internal/subsidy"
	"github.com/solarroi/solarroi/internal/usagealert"
	"github.com/solarroi/solarroi/internal/weather"
)

// Report is a calculation rounded for display: integers for currency and
// kWh, one decimal for years and percent, two for kW and tons.
type Report struct {
	Location                 string                `json:"location"`
	State                    string                `json:"state"`
	Weather                  WeatherSummary        `json:"weatherData"`
	SolarROI                 SolarROI              `json:"solarROI"`
	Assumptions              Assumptions           `json:"assumptions"`
	MLPrediction             generation.Prediction `json:"mlPrediction"`
	ApplianceRecommendations []string              `json:"applianceRecommendations"`
	Recommendation           string                `json:"recommendation"`
	AIExplanation            advisory.Explanation  `json:"aiExplanation"`
	RecordID                 string                `json:"recordId,omitempty"`
}

// WeatherSummary is the weather shown with a report.
type WeatherSummary struct {
	Temp         float64             `json:"temp"`
	Humidity     float64             `json:"humidity"`
	CloudPercent float64             `json:"cloudPercent"`
	Description  string              `json:"description"`
	Coordinates  weather.Coordinates `json:"coordinates"`
}

// SolarROI holds the rounded metrics.
type SolarROI struct {
	SystemSizeKW            float64 `json:"systemSizeKW"`
	RecommendedSystemSizeKW float64 `json:"recommendedSystemSizeKW"`
	TotalCost               float64 `json:"totalCost"`
	SubsidyPercent          float64 `json:"subsidyPercent"`
	SubsidyAmount           float64 `json:"subsidyAmount"`
	SubsidyDescription      string  `json:"subsidyDescription"`
	NetCost                 float64 `json:"netCost"`
	AnnualSavings           float64 `json:"annualSavings"`
	PaybackPeriod           float64 `json:"paybackPeriod"`
	TwentyYearSavings       float64 `json:"twentyYearSavings"`
	RoiPercent              float64 `json:"roiPercent"`
	AnnualGeneration        float64 `json:"annualGeneration"`
	OutputCategory          string  `json:"outputCategory"`
	CO2Offset               float64 `json:"co2Offset"`
}

// Rounded returns the display form of the metrics.
func (m Metrics) Rounded(entry subsidy.Entry) SolarROI {
	return SolarROI{
		SystemSizeKW:            round(m.SystemSizeKW, 2),
		RecommendedSystemSizeKW: round(m.RecommendedSystemSizeKW, 2),
		TotalCost:               round(m.TotalCost, 0),
		SubsidyPercent:          entry.SubsidyPercent,
		SubsidyAmount:           round(m.SubsidyAmount, 0),
		SubsidyDescription:      entry.Description,
		NetCost:                 round(m.NetCost, 0),
		AnnualSavings:           round(m.AnnualSavings, 0),
		PaybackPeriod:           round(m.PaybackPeriod, 1),
		TwentyYearSavings:       round(m.TwentyYearSavings, 0),
		RoiPercent:              round(m.RoiPercent, 1),
		AnnualGeneration:        round(m.AnnualGeneration, 0),
		OutputCategory:          string(m.OutputCategory),
		CO2Offset:               round(m.CO2OffsetTons, 2),
	}
}

// NewReport builds the display report for a calculation.
func NewReport(calc *Calculation, explanation advisory.Explanation) *Report {
	return &Report{
		Location: calc.Location,
		State:    calc.Region,
		Weather: WeatherSummary{
			Temp:         calc.Weather.TemperatureC,
			Humidity:     calc.Weather.HumidityPercent,
			CloudPercent: calc.Weather.CloudPercent,
			Description:  calc.Weather.Description,
			Coordinates:  calc.Weather.Coordinates,
		},
		SolarROI:                 calc.Metrics.Rounded(calc.Subsidy),
		Assumptions:              calc.Assumptions,
		MLPrediction:             calc.Prediction,
		ApplianceRecommendations: calc.ApplianceRecommendations,
		Recommendation:           calc.Recommendation,
		AIExplanation:            explanation,
	}
}

// AdvisoryContext is what the advisory layer narrates.
func (c *Calculation) AdvisoryContext() advisory.Context {
	return advisory.Context{
		Location:         c.Location,
		SystemSizeKW:     c.Metrics.SystemSizeKW,
		AnnualGeneration: c.Metrics.AnnualGeneration,
		OutputCategory:   string(c.Metrics.OutputCategory),
		AnnualSavings:    c.Metrics.AnnualSavings,
		PaybackPeriod:    c.Metrics.PaybackPeriod,
	}
}

// Record converts a calculation into a history record. ID and CreatedAt
// are assigned by the repository.
func (c *Calculation) Record() *history.Record {
	r := c.Metrics.Rounded(c.Subsidy)
	return &history.Record{
		Location: c.Location,
		Input: history.Input{
			Location:     c.Input.Location,
			MonthlyBill:  c.Input.MonthlyBill,
			SystemSizeKW: r.SystemSizeKW,
		},
		Prediction: history.Prediction{
			SystemSizeKW:            r.SystemSizeKW,
			RecommendedSystemSizeKW: r.RecommendedSystemSizeKW,
			AnnualGeneration:        r.AnnualGeneration,
			OutputCategory:          r.OutputCategory,
			PaybackPeriod:           r.PaybackPeriod,
			AnnualSavings:           r.AnnualSavings,
			RoiPercent:              r.RoiPercent,
			CO2Offset:               r.CO2Offset,
		},
	}
}

// Profile is the dashboard's view of the user's system.
type Profile struct {
	Location     string  `json:"location"`
	MonthlyBill  float64 `json:"monthlyBill"`
	SystemSizeKW float64 `json:"systemSizeKW"`
}

// ROIStatus is the dashboard's rounded ROI summary.
type ROIStatus struct {
	PaybackPeriod float64 `json:"paybackPeriod"`
	RoiPercent    float64 `json:"roiPercent"`
	AnnualSavings float64 `json:"annualSavings"`
	CO2Offset     float64 `json:"co2Offset"`
}

// Dashboard is the returning-user view.
type Dashboard struct {
	Profile          Profile              `json:"profile"`
	ROIStatus        ROIStatus            `json:"roiStatus"`
	TomorrowForecast TomorrowForecast     `json:"tomorrowForecast"`
	UsageAlerts      []usagealert.Alert   `json:"usageAlerts"`
	AIAdvisorSummary advisory.Explanation `json:"aiAdvisorSummary"`
}

// NewDashboard builds the dashboard for an operational view.
func NewDashboard(view *OperationalView, summary advisory.Explanation) *Dashboard {
	calc := view.Calculation
	r := calc.Metrics.Rounded(calc.Subsidy)
	return &Dashboard{
		Profile: Profile{
			Location:     calc.Location,
			MonthlyBill:  calc.Input.MonthlyBill,
			SystemSizeKW: r.SystemSizeKW,
		},
		ROIStatus: ROIStatus{
			PaybackPeriod: r.PaybackPeriod,
			RoiPercent:    r.RoiPercent,
			AnnualSavings: r.AnnualSavings,
			CO2Offset:     r.CO2Offset,
		},
		TomorrowForecast: view.TomorrowForecast,
		UsageAlerts:      view.UsageAlerts,
		AIAdvisorSummary: summary,
	}
}
