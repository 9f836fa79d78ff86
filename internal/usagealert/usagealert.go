// Package usagealert turns upcoming forecast slots into appliance
// scheduling guidance.
package usagealert

import (
	"time"

	"github.com/solarroi/solarroi/internal/weather"
)

// Alert levels.
const (
	LevelHighSolarWindow = "high-solar-window"
	LevelEfficiencyMode  = "efficiency-mode"
)

const (
	// Horizon is how many slots are scanned (48 hours at 3-hour granularity).
	Horizon = 16

	// MaxClearCloudPercent is the highest cloud cover counted as a solar window.
	MaxClearCloudPercent = 35

	// MaxWindows caps the windows attached to an alert.
	MaxWindows = 3
)

// WindowLayout formats Window.Time in India Standard Time.
const WindowLayout = "Mon 02 Jan 2006, 15:04 MST"

var indiaTime = time.FixedZone("IST", 5*60*60+30*60)

const (
	highSolarMessage  = "High solar window detected. Run heavy appliances in the following periods for maximum free solar usage."
	efficiencyMessage = "Cloudy/monsoon-like conditions expected. Use grid-saving mode and defer heavy appliance usage."
)

// Window is a forecast slot good for running heavy loads. Time is the slot
// start rendered with WindowLayout.
type Window struct {
	Time         string  `json:"time"`
	CloudPercent float64 `json:"cloudPercent"`
	Temperature  float64 `json:"temperature"`
}

// Alert is scheduling guidance for the next two days.
type Alert struct {
	Level   string   `json:"level"`
	Message string   `json:"message"`
	Windows []Window `json:"windows,omitempty"`
}

// Build scans the first Horizon slots for clear windows. It always returns
// exactly one alert: a high-solar-window alert carrying up to MaxWindows
// windows in forecast order, or an efficiency-mode alert without windows.
func Build(slots []weather.ForecastSlot) []Alert {
	if len(slots) > Horizon {
		slots = slots[:Horizon]
	}

	var windows []Window
	for _, slot := range slots {
		if slot.CloudPercent > MaxClearCloudPercent {
			continue
		}
		windows = append(windows, Window{
			Time:         windowTime(slot),
			CloudPercent: slot.CloudPercent,
			Temperature:  slot.TemperatureC,
		})
		if len(windows) == MaxWindows {
			break
		}
	}

	if len(windows) == 0 {
		return []Alert{{Level: LevelEfficiencyMode, Message: efficiencyMessage}}
	}

	return []Alert{{
		Level:   LevelHighSolarWindow,
		Message: highSolarMessage,
		Windows: windows,
	}}
}

func windowTime(slot weather.ForecastSlot) string {
	at := slot.Time
	if at.IsZero() {
		at = time.Unix(slot.TimestampSec, 0)
	}
	return at.In(indiaTime).Format(WindowLayout)
}
