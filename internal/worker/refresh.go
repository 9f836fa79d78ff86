package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/history"
	"github.com/solarroi/solarroi/internal/roi"
	"github.com/solarroi/solarroi/internal/weather"
)

// Predictions is the subset of the ROI service the refresh job needs.
type Predictions interface {
	History(ctx context.Context, limit int) ([]*history.Record, error)
	Recompute(ctx context.Context, in roi.Input) (*history.Record, error)
}

// ForecastProbe fetches a forecast to prove the weather provider is reachable.
type ForecastProbe interface {
	Forecast(ctx context.Context, lat, lon float64) ([]weather.ForecastSlot, error)
}

// RefreshJob recomputes the distinct inputs behind recent predictions and
// reports which ones current forecasts have moved. The history is read, never
// written.
type RefreshJob struct {
	config      RefreshConfig
	logger      zerolog.Logger
	predictions Predictions
	forecasts   ForecastProbe

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns            int64
	SuccessfulRecomputes int64
	FailedRecomputes     int64
	ChangedPredictions   int64
	SkippedRecords       int64
	HealthChecks         int64
	FailedHealthChecks   int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config      RefreshConfig
	Logger      zerolog.Logger
	Predictions Predictions

	// Forecasts is optional; without it the health check only probes the
	// history store.
	Forecasts ForecastProbe
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:      cfg.Config.withDefaults(),
		logger:      cfg.Logger,
		predictions: cfg.Predictions,
		forecasts:   cfg.Forecasts,
		metrics:     &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Scanned     int
	TotalInputs int
	Skipped     int
	Successful  int
	Failed      int
	Changed     int
	Errors      []RefreshError
}

// RefreshError is a failed recomputation.
type RefreshError struct {
	Location    string
	MonthlyBill float64
	Error       string
}

// Run loads recent records and recomputes their distinct inputs. The error
// is non-nil only when the history could not be read.
func (j *RefreshJob) Run(ctx context.Context) (*RefreshResult, error) {
	startTime := time.Now()
	result := &RefreshResult{StartTime: startTime}

	records, err := j.predictions.History(ctx, j.config.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("loading prediction history: %w", err)
	}
	result.Scanned = len(records)

	candidates, skipped := DistinctInputs(records, j.config.MaxInputs)
	result.TotalInputs = len(candidates)
	result.Skipped = skipped

	j.logger.Info().
		Int("scanned", result.Scanned).
		Int("inputs", result.TotalInputs).
		Int("concurrency", j.config.Concurrency).
		Msg("starting history refresh job")

	inputsChan := make(chan Candidate, len(candidates))
	resultsChan := make(chan inputResult, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.recomputeWorker(ctx, inputsChan, resultsChan)
		}()
	}

	for _, c := range candidates {
		inputsChan <- c
	}
	close(inputsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for ir := range resultsChan {
		if ir.err == nil {
			result.Successful++
			if ir.changed {
				result.Changed++
			}
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, RefreshError{
			Location:    ir.candidate.Input.Location,
			MonthlyBill: ir.candidate.Input.MonthlyBill,
			Error:       ir.err.Error(),
		})
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("changed", result.Changed).
		Int("skipped", result.Skipped).
		Msg("history refresh job completed")

	return result, nil
}

type inputResult struct {
	candidate Candidate
	changed   bool
	err       error
}

func (j *RefreshJob) recomputeWorker(ctx context.Context, candidates <-chan Candidate, results chan<- inputResult) {
	for c := range candidates {
		select {
		case <-ctx.Done():
			results <- inputResult{candidate: c, err: ctx.Err()}
		default:
			changed, err := j.recompute(ctx, c)
			results <- inputResult{candidate: c, changed: changed, err: err}
		}
	}
}

func (j *RefreshJob) recompute(ctx context.Context, c Candidate) (bool, error) {
	inputCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	rec, err := j.predictions.Recompute(inputCtx, c.Input)
	if err != nil {
		j.logger.Warn().
			Err(err).
			Str("location", c.Input.Location).
			Msg("recompute failed")
		return false, err
	}

	if rec.Prediction == c.Stored.Prediction {
		return false, nil
	}

	j.logger.Info().
		Str("location", c.Input.Location).
		Str("record_id", c.Stored.ID).
		Float64("stored_payback", c.Stored.Prediction.PaybackPeriod).
		Float64("current_payback", rec.Prediction.PaybackPeriod).
		Str("stored_category", c.Stored.Prediction.OutputCategory).
		Str("current_category", rec.Prediction.OutputCategory).
		Msg("prediction changed")
	return true, nil
}

// HealthCheck fetches a forecast for the probe point and reads the newest
// history record.
func (j *RefreshJob) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	err := j.healthCheck(checkCtx)

	j.metrics.mu.Lock()
	j.metrics.HealthChecks++
	if err != nil {
		j.metrics.FailedHealthChecks++
	}
	j.metrics.mu.Unlock()

	return err
}

func (j *RefreshJob) healthCheck(ctx context.Context) error {
	if j.forecasts != nil {
		p := j.config.ProbePoint
		if _, err := j.forecasts.Forecast(ctx, p.Lat, p.Lon); err != nil {
			return fmt.Errorf("weather probe: %w", err)
		}
	}
	if _, err := j.predictions.History(ctx, 1); err != nil {
		return fmt.Errorf("history probe: %w", err)
	}
	return nil
}

// Candidate is a calculation input paired with the newest record it came
// from.
type Candidate struct {
	Input  roi.Input
	Stored *history.Record
}

// DistinctInputs turns records into calculation inputs, newest first,
// dropping duplicates and records that would not validate. A stored size
// equal to the recommended size is treated as an automatic sizing request.
func DistinctInputs(records []*history.Record, maxInputs int) (candidates []Candidate, skipped int) {
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		if len(candidates) >= maxInputs {
			break
		}

		in := roi.Input{
			Location:    rec.Input.Location,
			MonthlyBill: rec.Input.MonthlyBill,
		}
		if size := rec.Input.SystemSizeKW; size != rec.Prediction.RecommendedSystemSizeKW {
			in.RequestedSystemSizeKW = &size
		}
		if err := in.Validate(); err != nil {
			skipped++
			continue
		}

		key := inputKey(in)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, Candidate{Input: in, Stored: rec})
	}

	return candidates, skipped
}

func inputKey(in roi.Input) string {
	size := "auto"
	if in.RequestedSystemSizeKW != nil {
		size = fmt.Sprintf("%g", *in.RequestedSystemSizeKW)
	}
	return fmt.Sprintf("%s|%g|%s", strings.ToLower(in.Location), in.MonthlyBill, size)
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulRecomputes += int64(result.Successful)
	j.metrics.FailedRecomputes += int64(result.Failed)
	j.metrics.ChangedPredictions += int64(result.Changed)
	j.metrics.SkippedRecords += int64(result.Skipped)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:            j.metrics.TotalRuns,
		SuccessfulRecomputes: j.metrics.SuccessfulRecomputes,
		FailedRecomputes:     j.metrics.FailedRecomputes,
		ChangedPredictions:   j.metrics.ChangedPredictions,
		SkippedRecords:       j.metrics.SkippedRecords,
		HealthChecks:         j.metrics.HealthChecks,
		FailedHealthChecks:   j.metrics.FailedHealthChecks,
		LastRunAt:            j.metrics.LastRunAt,
		LastRunDuration:      j.metrics.LastRunDuration,
		TotalDuration:        j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns metrics keyed for the worker health endpoint.
func (j *RefreshJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()

	snapshot := map[string]any{
		"total_runs":            m.TotalRuns,
		"successful_recomputes": m.SuccessfulRecomputes,
		"failed_recomputes":     m.FailedRecomputes,
		"changed_predictions":   m.ChangedPredictions,
		"skipped_records":       m.SkippedRecords,
		"health_checks":         m.HealthChecks,
		"failed_health_checks":  m.FailedHealthChecks,
		"last_run_duration":     m.LastRunDuration.String(),
		"last_run_at":           nil,
	}
	if !m.LastRunAt.IsZero() {
		snapshot["last_run_at"] = m.LastRunAt.UTC().Format(time.RFC3339)
	}
	return snapshot
}
