package usagealert_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarroi/solarroi/internal/usagealert"
	"github.com/solarroi/solarroi/internal/weather"
)

var firstSlot = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

func slotsWithCloud(n int, cloud float64) []weather.ForecastSlot {
	slots := make([]weather.ForecastSlot, n)
	for i := range slots {
		at := firstSlot.Add(time.Duration(i) * 3 * time.Hour)
		slots[i] = weather.ForecastSlot{
			Time:         at,
			TimestampSec: at.Unix(),
			CloudPercent: cloud,
			TemperatureC: 25 + float64(i),
			Label:        fmt.Sprintf("slot-%02d", i),
		}
	}
	return slots
}

func TestBuild_HighSolarWindowsInOrder(t *testing.T) {
	slots := slotsWithCloud(16, 80)
	slots[2].CloudPercent = 10
	slots[5].CloudPercent = 35
	slots[9].CloudPercent = 0

	alerts := usagealert.Build(slots)

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, usagealert.LevelHighSolarWindow, alert.Level)
	assert.NotEmpty(t, alert.Message)
	require.Len(t, alert.Windows, 3)

	assert.Equal(t, usagealert.Window{Time: "Sat 17 Oct 2026, 11:30 IST", CloudPercent: 10, Temperature: 27}, alert.Windows[0])
	assert.Equal(t, usagealert.Window{Time: "Sat 17 Oct 2026, 20:30 IST", CloudPercent: 35, Temperature: 30}, alert.Windows[1])
	assert.Equal(t, usagealert.Window{Time: "Sun 18 Oct 2026, 08:30 IST", CloudPercent: 0, Temperature: 34}, alert.Windows[2])
}

func TestBuild_AllCloudyIsEfficiencyMode(t *testing.T) {
	alerts := usagealert.Build(slotsWithCloud(16, 36))

	require.Len(t, alerts, 1)
	assert.Equal(t, usagealert.LevelEfficiencyMode, alerts[0].Level)
	assert.Nil(t, alerts[0].Windows)

	raw, err := json.Marshal(alerts[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "windows")
}

func TestBuild_CapsAtThreeWindows(t *testing.T) {
	alerts := usagealert.Build(slotsWithCloud(16, 5))

	require.Len(t, alerts, 1)
	require.Len(t, alerts[0].Windows, 3)
	assert.Equal(t, "Sat 17 Oct 2026, 05:30 IST", alerts[0].Windows[0].Time)
	assert.Equal(t, "Sat 17 Oct 2026, 11:30 IST", alerts[0].Windows[2].Time)
}

func TestBuild_IgnoresSlotsBeyondHorizon(t *testing.T) {
	slots := slotsWithCloud(40, 90)
	slots[16].CloudPercent = 0
	slots[30].CloudPercent = 0

	alerts := usagealert.Build(slots)

	require.Len(t, alerts, 1)
	assert.Equal(t, usagealert.LevelEfficiencyMode, alerts[0].Level)
}

func TestBuild_EmptyInputStillReturnsAlert(t *testing.T) {
	for _, in := range [][]weather.ForecastSlot{nil, {}} {
		alerts := usagealert.Build(in)
		require.NotNil(t, alerts)
		require.Len(t, alerts, 1)
		assert.Equal(t, usagealert.LevelEfficiencyMode, alerts[0].Level)
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	slots := slotsWithCloud(20, 10)
	before := append([]weather.ForecastSlot(nil), slots...)

	_ = usagealert.Build(slots)

	assert.Equal(t, before, slots)
}

func TestBuild_WindowTimeIgnoresProviderLabel(t *testing.T) {
	slots := slotsWithCloud(1, 10)
	slots[0].Label = ""

	alerts := usagealert.Build(slots)
	require.Len(t, alerts[0].Windows, 1)
	assert.Equal(t, "Sat 17 Oct 2026, 05:30 IST", alerts[0].Windows[0].Time)

	slots[0].Time = time.Time{}
	alerts = usagealert.Build(slots)
	assert.Equal(t, "Sat 17 Oct 2026, 05:30 IST", alerts[0].Windows[0].Time)
}
