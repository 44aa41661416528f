package reassignmentservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	taskservice "github.com/kingsroom/venue-engine/app/modules/task/application"
)

// ConsumeMessages processes delivered reassignment messages one by one. A bad
// message never blocks the rest; its id is returned for redelivery.
func (s *ReassignmentService) ConsumeMessages(ctx context.Context, records []QueueRecord) ConsumeResult {
	result := ConsumeResult{FailedMessageIDs: []string{}}
	for _, record := range records {
		if err := s.consumeOne(ctx, record); err != nil {
			s.logger.ErrorContext(ctx, "Reassignment message failed",
				slog.String("message_id", record.MessageID),
				slog.Any("error", err),
			)
			result.FailedMessageIDs = append(result.FailedMessageIDs, record.MessageID)
			continue
		}
		result.Processed++
	}
	return result
}

func (s *ReassignmentService) consumeOne(ctx context.Context, record QueueRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing message: %v", r)
		}
	}()

	var msg QueueMessage
	if err := json.Unmarshal(record.Body, &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.GameID == "" || msg.NewVenueID == "" {
		return fmt.Errorf("%w: message missing gameId or newVenueId", ErrInvalidInput)
	}

	if msg.TaskID != "" {
		if err := s.tasks.StartTask(ctx, msg.TaskID); err != nil {
			s.logger.WarnContext(ctx, "Failed to mark task processing",
				slog.String("task_id", msg.TaskID.String()),
				slog.Any("error", err),
			)
		}
	}

	res := s.ProcessReassignment(ctx, msg.ReassignmentRequest)

	switch {
	case msg.TaskID == "":
	case !res.Success && record.RetriesRemaining:
		s.logger.WarnContext(ctx, "Reassignment failed, task progress deferred to redelivery",
			slog.String("task_id", msg.TaskID.String()),
			slog.String("game_id", msg.GameID.String()),
		)
	default:
		update := taskservice.ProgressUpdate{
			Key:    msg.GameID.String(),
			Failed: !res.Success,
			Result: res,
		}
		if !res.Success {
			update.ErrorMessage = res.Message
		}
		if _, err := s.tasks.RecordProgress(ctx, msg.TaskID, update); err != nil {
			s.logger.ErrorContext(ctx, "Failed to record task progress",
				slog.String("task_id", msg.TaskID.String()),
				slog.Any("error", err),
			)
		}
	}

	if !res.Success {
		return fmt.Errorf("reassignment of game %s failed at %s: %s", msg.GameID, res.FailedStage, res.Message)
	}
	return nil
}
