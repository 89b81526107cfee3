package camunda

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"emi-decision-engine/internal/common/errors"
	"emi-decision-engine/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
)

type fakeJobRecorder struct {
	mu        sync.Mutex
	statuses  []string
	durations int
}

func (f *fakeJobRecorder) RecordJobProcessed(_ context.Context, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
}

func (f *fakeJobRecorder) RecordJobDuration(_ context.Context, _ time.Duration, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations++
}

func createTestJob() entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "evaluate-emi-eligibility"}}
}

func TestInstrument_RecordsOutcome(t *testing.T) {
	rec := &fakeJobRecorder{}
	log := logger.NewTestLogger(t)

	ok := Instrument("test-task", JobHandlerFunc(func(worker.JobClient, entities.Job) error { return nil }), rec, log)
	failed := Instrument("test-task", JobHandlerFunc(func(worker.JobClient, entities.Job) error {
		return errors.NewInferenceFailedError("emi", stderrors.New("boom"))
	}), rec, log)

	ok(nil, createTestJob())
	failed(nil, createTestJob())

	assert.Equal(t, []string{"completed", "failed"}, rec.statuses)
	assert.Equal(t, 2, rec.durations)
}

func TestInstrument_NilRecorder(t *testing.T) {
	h := Instrument("test-task", JobHandlerFunc(func(worker.JobClient, entities.Job) error { return nil }), nil, logger.NewNoOpLogger())
	assert.NotPanics(t, func() { h(nil, createTestJob()) })
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "INFERENCE_FAILED", ErrorCode(errors.NewInferenceFailedError("eligibility", stderrors.New("x"))))
	assert.Equal(t, "INTERNAL_ERROR", ErrorCode(stderrors.New("plain")))
}

func TestBackoffDelay(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, BackoffDelay(rc, 0))
	assert.Equal(t, 2*time.Second, BackoffDelay(rc, 1))
	assert.Equal(t, 4*time.Second, BackoffDelay(rc, 2))
	assert.Equal(t, 5*time.Second, BackoffDelay(rc, 3))
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, IsRetryableZeebeError(stderrors.New("rpc error: code = Unavailable desc = connection refused")))
	assert.True(t, IsRetryableZeebeError(stderrors.New("context deadline exceeded")))
	assert.False(t, IsRetryableZeebeError(stderrors.New("permission denied")))
}
