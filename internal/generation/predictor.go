// Package generation predicts the AC power signal of a panel system from
// temperature and cloud cover.
package generation

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/provider/resilience"
)

// Source identifies where a prediction came from.
type Source string

const (
	SourceMLService Source = "ml-service"
	SourceHeuristic Source = "heuristic-fallback"
)

// MaxIrradiation is the upper clamp of the irradiation proxy.
const MaxIrradiation = 1.5

// Prediction is a weather-derived generation signal.
type Prediction struct {
	Source      Source  `json:"source"`
	Irradiation float64 `json:"irradiation"`
	PredictedKw float64 `json:"predictedKw"`
}

// Model returns predicted AC power in kW for a temperature and irradiation.
type Model interface {
	PredictACPower(ctx context.Context, temperatureC, irradiation float64) (float64, error)
}

// PredictorConfig holds configuration for the predictor.
type PredictorConfig struct {
	// Model is optional. Without it every prediction uses the heuristic.
	Model Model

	// Timeout bounds the model call (default: 6 seconds).
	Timeout time.Duration

	Logger zerolog.Logger

	// OnDegraded is called whenever the heuristic replaces the model.
	OnDegraded func(ctx context.Context, reason error)
}

// Predictor combines the remote model with a deterministic heuristic.
type Predictor struct {
	model      Model
	timeout    time.Duration
	logger     zerolog.Logger
	onDegraded func(ctx context.Context, reason error)
}

// NewPredictor creates a new generation predictor.
func NewPredictor(cfg PredictorConfig) *Predictor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 6 * time.Second
	}
	return &Predictor{
		model:      cfg.Model,
		timeout:    timeout,
		logger:     cfg.Logger,
		onDegraded: cfg.OnDegraded,
	}
}

// Predict never fails: any model error, timeout or missing model yields
// the heuristic prediction.
func (p *Predictor) Predict(ctx context.Context, temperatureC, cloudPercent float64) Prediction {
	irradiation := Irradiation(cloudPercent)

	if p.model == nil {
		return Heuristic(temperatureC, irradiation)
	}

	call := resilience.Call[Prediction]{
		Name:    "ml-service",
		Timeout: p.timeout,
		Fallback: func(reason error) Prediction {
			if p.onDegraded != nil {
				p.onDegraded(ctx, reason)
			}
			return Heuristic(temperatureC, irradiation)
		},
		Logger: p.logger,
	}

	result := call.Run(ctx, func(ctx context.Context) (Prediction, error) {
		kw, err := p.model.PredictACPower(ctx, temperatureC, irradiation)
		if err != nil {
			return Prediction{}, err
		}
		return Prediction{
			Source:      SourceMLService,
			Irradiation: irradiation,
			PredictedKw: math.Max(0, kw),
		}, nil
	})

	return result.Value
}

// Irradiation maps cloud cover to a unitless proxy clamped to [0, 1.5].
func Irradiation(cloudPercent float64) float64 {
	if math.IsNaN(cloudPercent) {
		return 0
	}
	return clamp((100-cloudPercent)/100, 0, MaxIrradiation)
}

// Heuristic is the deterministic fallback:
// round(irradiation × 4.5 × max(0.6, 1 − |T − 30| × 0.01), 3).
func Heuristic(temperatureC, irradiation float64) Prediction {
	irradiation = clamp(irradiation, 0, MaxIrradiation)
	temperatureFactor := math.Max(0.6, 1-math.Abs(temperatureC-30)*0.01)
	if math.IsNaN(temperatureFactor) {
		temperatureFactor = 0.6
	}
	return Prediction{
		Source:      SourceHeuristic,
		Irradiation: irradiation,
		PredictedKw: round(irradiation*4.5*temperatureFactor, 3),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
