package history

import (
	"context"
	"time"
)

// SnapshotJob records the daily net worth snapshot from the scheduler.
type SnapshotJob struct {
	service *Service
	timeout time.Duration
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(service *Service, timeout time.Duration) *SnapshotJob {
	return &SnapshotJob{service: service, timeout: timeout}
}

// Name returns the job name used in scheduler logs.
func (j *SnapshotJob) Name() string {
	return "net_worth_snapshot"
}

// Run records one snapshot.
func (j *SnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.service.RecordSnapshot(ctx)
}
