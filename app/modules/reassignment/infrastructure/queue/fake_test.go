package reassignmentqueue

import (
	"context"
	"sync"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
)

type FakeConsumer struct {
	mu      sync.Mutex
	records []reassignmentservice.QueueRecord
	fail    bool
}

func (f *FakeConsumer) ConsumeMessages(ctx context.Context, records []reassignmentservice.QueueRecord) reassignmentservice.ConsumeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
	res := reassignmentservice.ConsumeResult{FailedMessageIDs: []string{}}
	for _, r := range records {
		if f.fail {
			res.FailedMessageIDs = append(res.FailedMessageIDs, r.MessageID)
			continue
		}
		res.Processed++
	}
	return res
}

type FakeLocker struct {
	mu    sync.Mutex
	trace []string
	err   error
}

func (f *FakeLocker) WithGameLock(ctx context.Context, groupKey string, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	f.trace = append(f.trace, "lock:"+groupKey)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	err := fn(ctx)
	f.mu.Lock()
	f.trace = append(f.trace, "unlock:"+groupKey)
	f.mu.Unlock()
	return err
}

type FakeInserter struct {
	InsertFunc func(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
	args       []river.JobArgs
	opts       []*river.InsertOpts
}

func (f *FakeInserter) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	f.args = append(f.args, args)
	f.opts = append(f.opts, opts)
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, args, opts)
	}
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: int64(len(f.args))}}, nil
}

var (
	_ Consumer   = (*FakeConsumer)(nil)
	_ GameLocker = (*FakeLocker)(nil)
	_ inserter   = (*FakeInserter)(nil)
)
