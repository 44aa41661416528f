package reassignmenthandlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
)

// Invocation is either a batch of queue records or a single named operation.
type Invocation struct {
	Records   []reassignmentservice.QueueRecord `json:"records,omitempty"`
	Operation string                            `json:"operation,omitempty"`
	Arguments json.RawMessage                   `json:"arguments,omitempty"`
	// InitiatedBy is taken from the authenticated caller, never from the body.
	InitiatedBy string `json:"-"`
}

// Dispatcher routes invocations to the consumer or the command registry.
type Dispatcher struct {
	service  reassignmentservice.Service
	commands map[string]Command
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewDispatcher builds the dispatcher with every supported operation registered.
func NewDispatcher(service reassignmentservice.Service, logger *slog.Logger, tracer trace.Tracer) (*Dispatcher, error) {
	commands, err := buildRegistry(defaultCommands())
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		service:  service,
		commands: commands,
		logger:   logger,
		tracer:   tracer,
	}, nil
}

// Operations lists the registered names, aliases included.
func (d *Dispatcher) Operations() []string {
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs inv. Queue batches never fail as a whole; the result lists the
// records to redeliver.
func (d *Dispatcher) Invoke(ctx context.Context, inv Invocation) (any, error) {
	if len(inv.Records) > 0 {
		ctx, span := d.tracer.Start(ctx, "Dispatcher.ConsumeMessages", trace.WithAttributes(
			attribute.Int("records", len(inv.Records)),
		))
		defer span.End()

		result := d.service.ConsumeMessages(ctx, inv.Records)
		if len(result.FailedMessageIDs) > 0 {
			d.logger.WarnContext(ctx, "Queue batch has failed records",
				slog.Int("processed", result.Processed),
				slog.Int("failed", len(result.FailedMessageIDs)),
			)
		}
		return result, nil
	}

	cmd, ok := d.commands[inv.Operation]
	if !ok {
		d.logger.WarnContext(ctx, "Unknown operation requested", slog.String("operation", inv.Operation))
		return nil, &UnknownOperationError{Operation: inv.Operation}
	}

	ctx, span := d.tracer.Start(ctx, "Dispatcher."+inv.Operation, trace.WithAttributes(
		attribute.String("operation", inv.Operation),
		attribute.String("initiated_by", inv.InitiatedBy),
	))
	defer span.End()

	out, err := cmd(ctx, d.service, inv)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.ErrorContext(ctx, "Operation failed",
			slog.String("operation", inv.Operation),
			slog.Any("error", err),
		)
		return nil, err
	}
	return out, nil
}
