package roi

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/advisory"
	"github.com/solarroi/solarroi/internal/history"
	"github.com/solarroi/solarroi/internal/provider/resilience"
)

// Outcome labels for calculation metrics.
const (
	OutcomeOK         = "ok"
	OutcomeInvalid    = "invalid"
	OutcomeWeather    = "weather_unavailable"
	OutcomeDegenerate = "degenerate"
	OutcomeError      = "error"
)

// Explainer narrates a calculation.
type Explainer interface {
	Explain(ctx context.Context, c advisory.Context) advisory.Explanation
}

// Recorder receives pipeline metrics. Optional.
type Recorder interface {
	RecordCalculation(ctx context.Context, kind, outcome string, duration time.Duration)
}

// ServiceConfig holds configuration for the ROI service.
type ServiceConfig struct {
	Engine    *Engine
	Explainer Explainer
	History   history.Repository
	Logger    zerolog.Logger
	Metrics   Recorder

	// SaveTimeout bounds the history write (default: 5 seconds).
	SaveTimeout time.Duration
}

// Service is the entry point used by the HTTP API and the worker.
type Service struct {
	engine      *Engine
	explainer   Explainer
	history     history.Repository
	logger      zerolog.Logger
	metrics     Recorder
	saveTimeout time.Duration
}

// NewService creates a new ROI service.
func NewService(cfg ServiceConfig) *Service {
	saveTimeout := cfg.SaveTimeout
	if saveTimeout == 0 {
		saveTimeout = 5 * time.Second
	}
	return &Service{
		engine:      cfg.Engine,
		explainer:   cfg.Explainer,
		history:     cfg.History,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		saveTimeout: saveTimeout,
	}
}

// Calculate runs the pipeline, narrates the result and records it in the
// history. A failed history write is logged and does not fail the call.
func (s *Service) Calculate(ctx context.Context, in Input) (*Report, error) {
	start := time.Now()

	calc, err := s.engine.Compute(ctx, in)
	s.record(ctx, "calculate", err, start)
	if err != nil {
		return nil, err
	}

	report := NewReport(calc, s.explainer.Explain(ctx, calc.AdvisoryContext()))
	report.RecordID = s.save(ctx, calc)

	return report, nil
}

// Recompute runs the pipeline without narration and returns the record it
// would produce. Nothing is written: the history only holds user
// calculations.
func (s *Service) Recompute(ctx context.Context, in Input) (*history.Record, error) {
	start := time.Now()

	calc, err := s.engine.Compute(ctx, in)
	s.record(ctx, "recompute", err, start)
	if err != nil {
		return nil, err
	}
	return calc.Record(), nil
}

// Dashboard builds the returning-user view.
func (s *Service) Dashboard(ctx context.Context, in Input) (*Dashboard, error) {
	start := time.Now()

	view, err := s.engine.OperationalView(ctx, in)
	s.record(ctx, "dashboard", err, start)
	if err != nil {
		return nil, err
	}

	summary := s.explainer.Explain(ctx, view.Calculation.AdvisoryContext())
	return NewDashboard(view, summary), nil
}

// Latest returns the newest history record, or nil when there is none.
func (s *Service) Latest(ctx context.Context) (*history.Record, error) {
	rec, err := s.history.Latest(ctx)
	if errors.Is(err, history.ErrNoRecords) {
		return nil, nil
	}
	return rec, err
}

// History returns recent records, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]*history.Record, error) {
	records, err := s.history.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*history.Record{}
	}
	return records, nil
}

// save writes the record within the save budget and returns its ID, or ""
// when the write failed.
func (s *Service) save(ctx context.Context, calc *Calculation) string {
	rec := calc.Record()

	_, err := resilience.Bounded(context.WithoutCancel(ctx), s.saveTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.history.Save(ctx, rec)
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("location", calc.Location).
			Msg("failed to persist prediction record")
		return ""
	}
	return rec.ID
}

func (s *Service) record(ctx context.Context, kind string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCalculation(ctx, kind, Outcome(err), time.Since(start))
}

// Outcome classifies a pipeline error for metrics.
func Outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &verr):
		return OutcomeInvalid
	case errors.Is(err, ErrWeatherUnavailable):
		return OutcomeWeather
	case errors.Is(err, ErrDegenerateCalculation):
		return OutcomeDegenerate
	default:
		return OutcomeError
	}
}
