package reassignmentqueue

import (
	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
)

// ReassignmentJob carries one queued reassignment. Only DedupKey takes part in
// river's unique-by-args check, so a retried enqueue of the same message is
// dropped while a later request for the same game is not.
type ReassignmentJob struct {
	GroupKey string                           `json:"group_key"`
	DedupKey string                           `json:"dedup_key" river:"unique"`
	Message  reassignmentservice.QueueMessage `json:"message"`
}

// Kind returns the job type identifier for River
func (ReassignmentJob) Kind() string { return "venue_reassignment" }

func jobFrom(job reassignmentservice.QueueJob) ReassignmentJob {
	return ReassignmentJob{
		GroupKey: job.GroupKey,
		DedupKey: job.DedupKey,
		Message:  job.Message,
	}
}
