package reassignmentevents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
)

// NewNATSPublisher creates a NATS JetStream publisher. The reassignment stream
// is provisioned first; topics contain dots, so per-topic auto provisioning is off.
func NewNATSPublisher(natsURL string, logger *slog.Logger) (message.Publisher, error) {
	if err := EnsureStream(natsURL); err != nil {
		return nil, err
	}

	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.Name("venue-engine"),
	}

	jsConfig := nats.JetStreamConfig{
		Disabled:      false,
		AutoProvision: false,
		TrackMsgId:    true,
	}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:               natsURL,
			NatsOptions:       options,
			Marshaler:         &nats.NATSMarshaler{},
			JetStream:         jsConfig,
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	return publisher, nil
}

// Publisher announces finished reassignments.
type Publisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

var _ reassignmentservice.Notifier = (*Publisher)(nil)

// NewPublisher wraps a watermill publisher.
func NewPublisher(publisher message.Publisher, logger *slog.Logger) *Publisher {
	return &Publisher{publisher: publisher, logger: logger, now: time.Now}
}

// ReassignmentFinished publishes to the completed or failed topic.
func (p *Publisher) ReassignmentFinished(ctx context.Context, req reassignmentservice.ReassignmentRequest, result reassignmentservice.PipelineResult) error {
	topic := ReassignmentCompletedV1
	if !result.Success {
		topic = ReassignmentFailedV1
	}

	payload, err := json.Marshal(ReassignmentFinishedPayloadV1{
		GameID:      req.GameID,
		OldVenueID:  req.OldVenueID,
		NewVenueID:  req.NewVenueID,
		OldEntityID: req.OldEntityID,
		NewEntityID: req.NewEntityID,
		Success:     result.Success,
		Message:     result.Message,
		FailedStage: result.FailedStage,
		Stats:       result.Stats,
		OccurredAt:  p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("game_id", req.GameID.String())
	msg.Metadata.Set("entity_id", req.NewEntityID.String())
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "Published reassignment outcome",
		slog.String("topic", topic),
		slog.String("game_id", req.GameID.String()),
		slog.String("message_id", msg.UUID),
	)
	return nil
}
