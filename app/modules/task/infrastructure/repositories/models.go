package taskdb

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Status is the lifecycle state of a background task.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// BackgroundTask is the job record for asynchronous reassignments.
type BackgroundTask struct {
	bun.BaseModel   `bun:"table:background_tasks,alias:bt"`
	ID              sharedtypes.TaskID   `bun:"id,pk,type:uuid" json:"id"`
	EntityID        sharedtypes.EntityID `bun:"entity_id,type:uuid,nullzero" json:"entityId,omitempty"`
	Status          Status               `bun:"status,notnull" json:"status"`
	TaskType        string               `bun:"task_type,notnull" json:"taskType"`
	TargetType      string               `bun:"target_type" json:"targetType"`
	TargetID        string               `bun:"target_id" json:"targetId,omitempty"`
	TargetIDs       []string             `bun:"target_ids,array" json:"targetIds,omitempty"`
	TargetCount     int                  `bun:"target_count,notnull,default:0" json:"targetCount"`
	FailedKeys      []string             `bun:"failed_keys,array" json:"failedKeys,omitempty"`
	Payload         string               `bun:"payload" json:"payload,omitempty"`
	ProcessedCount  int                  `bun:"processed_count,notnull,default:0" json:"processedCount"`
	FailedCount     int                  `bun:"failed_count,notnull,default:0" json:"failedCount"`
	ProgressPercent int                  `bun:"progress_percent,notnull,default:0" json:"progressPercent"`
	Result          json.RawMessage      `bun:"result,type:jsonb,nullzero" json:"result,omitempty"`
	ErrorMessage    *string              `bun:"error_message" json:"errorMessage,omitempty"`
	InitiatedBy     string               `bun:"initiated_by" json:"initiatedBy,omitempty"`
	CreatedAt       time.Time            `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt       time.Time            `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
	StartedAt       *time.Time           `bun:"started_at" json:"startedAt,omitempty"`
	CompletedAt     *time.Time           `bun:"completed_at" json:"completedAt,omitempty"`
}

// Fields is a partial update. Nil fields are left untouched.
type Fields struct {
	Result          json.RawMessage
	ErrorMessage    *string
	ProcessedCount  *int
	ProgressPercent *int
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// Progress is one finished unit of a multi-target task.
type Progress struct {
	// Key identifies the unit inside the result object, usually a game id.
	Key          string
	Failed       bool
	Result       json.RawMessage
	ErrorMessage string
}

// ApplyProgress records the outcome of one unit. Counts are derived from the
// distinct keys, so a redelivered unit replaces its earlier outcome instead of
// being counted twice.
func (t *BackgroundTask) ApplyProgress(p Progress, at time.Time) error {
	outcomes := map[string]json.RawMessage{}
	if len(t.Result) > 0 && string(t.Result) != "null" {
		if err := json.Unmarshal(t.Result, &outcomes); err != nil {
			return fmt.Errorf("task result is not a keyed object: %w", err)
		}
	}
	result := p.Result
	if result == nil {
		result = json.RawMessage("null")
	}
	outcomes[p.Key] = result
	raw, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("failed to encode task result: %w", err)
	}
	t.Result = raw

	t.FailedKeys = slices.DeleteFunc(slices.Clone(t.FailedKeys), func(k string) bool { return k == p.Key })
	if p.Failed {
		t.FailedKeys = append(t.FailedKeys, p.Key)
		msg := p.Key + ": " + p.ErrorMessage
		t.ErrorMessage = &msg
	} else if len(t.FailedKeys) == 0 {
		t.ErrorMessage = nil
	}

	t.ProcessedCount = len(outcomes)
	t.FailedCount = len(t.FailedKeys)
	target := max(t.TargetCount, 1)
	t.ProgressPercent = min(100, t.ProcessedCount*100/target)
	t.UpdatedAt = at.UTC()

	switch {
	case t.ProcessedCount < target:
		t.Status = StatusProcessing
		t.CompletedAt = nil
	case t.FailedCount > 0:
		t.Status = StatusFailed
		completed := at.UTC()
		t.CompletedAt = &completed
	default:
		t.Status = StatusCompleted
		completed := at.UTC()
		t.CompletedAt = &completed
	}
	return nil
}
