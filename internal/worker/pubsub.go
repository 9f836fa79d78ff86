package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in the job_type field.
const (
	JobHistoryRefresh = "history_refresh"
	JobHealthCheck    = "health_check"
)

// Message errors. Both are acknowledged since redelivery cannot fix them.
var (
	ErrMalformedMessage = errors.New("malformed job message")
	ErrUnknownJobType   = errors.New("unknown job type")
)

// JobMessage is the payload published to the jobs topic.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// Processor runs jobs from raw message payloads.
type Processor struct {
	refreshJob *RefreshJob
	logger     zerolog.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(refreshJob *RefreshJob, logger zerolog.Logger) *Processor {
	return &Processor{refreshJob: refreshJob, logger: logger}
}

// Process decodes data and runs the job it names.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobHistoryRefresh:
		return p.historyRefresh(ctx)
	case JobHealthCheck:
		return p.healthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

func (p *Processor) historyRefresh(ctx context.Context) error {
	result, err := p.refreshJob.Run(ctx)
	if err != nil {
		return err
	}

	// More failures than successes points at a provider outage.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many recompute failures: %d/%d", result.Failed, result.TotalInputs)
	}
	return nil
}

func (p *Processor) healthCheck(ctx context.Context) error {
	p.logger.Debug().Msg("running health check")

	if err := p.refreshJob.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	p.logger.Debug().Msg("health check passed")
	return nil
}

// PubSubHandler receives job messages from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// A refresh run can recompute many inputs.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start blocks receiving messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	if ack := Disposition(logger, h.processor.Process(ctx, msg.Data)); !ack {
		msg.Nack()
		return
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("message handled")
	msg.Ack()
}

// Disposition logs the outcome of a job and reports whether its message
// should be acknowledged.
func Disposition(logger zerolog.Logger, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrMalformedMessage), errors.Is(err, ErrUnknownJobType):
		logger.Warn().Err(err).Msg("dropping job message")
		return true
	default:
		logger.Error().Err(err).Msg("job failed")
		return false
	}
}
