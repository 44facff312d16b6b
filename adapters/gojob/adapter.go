package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-banklink/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	JobIDLinkRecovery = "banklink.link.recovery"

	ParamAttemptID = "attempt_id"
	ParamUserID    = "user_id"

	DedupPolicyDrop = "drop"
)

// RetryPolicy bounds how often a recovery delivery is requeued.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		BaseDelay:       30 * time.Second,
		MaxDelay:        15 * time.Minute,
		DeadLetterOnMax: true,
	}
}

// NormalizeAttempt applies the policy bounds to a nack for the given attempt.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// Backoff doubles the base delay per attempt up to MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// RecoveryMessage builds the queue message for a partially linked attempt.
// The access token never enters the queue payload.
func RecoveryMessage(attempt core.LinkAttempt) (*job.ExecutionMessage, error) {
	attemptID := strings.TrimSpace(attempt.ID)
	if attemptID == "" {
		return nil, fmt.Errorf("gojob: attempt id is required")
	}
	return &job.ExecutionMessage{
		JobID:      JobIDLinkRecovery,
		ScriptPath: JobIDLinkRecovery,
		Parameters: map[string]any{
			ParamAttemptID: attemptID,
			ParamUserID:    strings.TrimSpace(attempt.UserID),
		},
		IdempotencyKey: JobIDLinkRecovery + ":" + attemptID,
		DedupPolicy:    job.DeduplicationPolicy(DedupPolicyDrop),
	}, nil
}

// AttemptIDFromMessage reads the attempt id parameter of a recovery message.
func AttemptIDFromMessage(msg *job.ExecutionMessage) (string, error) {
	if msg == nil {
		return "", fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDLinkRecovery {
		return "", fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	raw, ok := msg.Parameters[ParamAttemptID]
	if !ok {
		return "", fmt.Errorf("gojob: attempt id parameter is required")
	}
	attemptID, ok := raw.(string)
	if !ok || strings.TrimSpace(attemptID) == "" {
		return "", fmt.Errorf("gojob: attempt id parameter is invalid")
	}
	return strings.TrimSpace(attemptID), nil
}

type RecoveryEnqueuer struct {
	enqueuer queue.Enqueuer
}

func NewRecoveryEnqueuer(enqueuer queue.Enqueuer) *RecoveryEnqueuer {
	return &RecoveryEnqueuer{enqueuer: enqueuer}
}

func (a *RecoveryEnqueuer) EnqueueLinkRecovery(ctx context.Context, attempt core.LinkAttempt) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg, err := RecoveryMessage(attempt)
	if err != nil {
		return err
	}
	return a.enqueuer.Enqueue(ctx, msg)
}

type AttemptResumer interface {
	ResumeLinkage(ctx context.Context, attemptID string) (core.LinkResult, error)
}

// RecoveryProcessor drives queued recovery messages through ResumeLinkage.
type RecoveryProcessor struct {
	resumer AttemptResumer
	policy  RetryPolicy
	logger  glog.Logger
}

func NewRecoveryProcessor(resumer AttemptResumer, policy RetryPolicy, logger glog.Logger) *RecoveryProcessor {
	return &RecoveryProcessor{resumer: resumer, policy: policy, logger: glog.Ensure(logger)}
}

// Process resumes the attempt carried by delivery. Attempts that can never
// complete are dead-lettered; other failures are requeued with backoff.
func (p *RecoveryProcessor) Process(ctx context.Context, delivery queue.Delivery, attempt int) error {
	if p == nil || p.resumer == nil {
		return fmt.Errorf("gojob: recovery processor is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	attemptID, err := AttemptIDFromMessage(delivery.Message())
	if err != nil {
		return delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: err.Error()})
	}

	result, err := p.resumer.ResumeLinkage(ctx, attemptID)
	if err == nil {
		p.logger.Info("link recovery completed", "attempt_id", attemptID, "linkage_id", result.Linkage.ID)
		return delivery.Ack(ctx)
	}

	if permanentRecoveryFailure(err) {
		p.logger.Warn("link recovery abandoned", "attempt_id", attemptID, "error", err.Error())
		return delivery.Nack(ctx, p.policy.NormalizeAttempt(queue.NackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		}, attempt))
	}
	p.logger.Warn("link recovery failed", "attempt_id", attemptID, "attempt", attempt, "error", err.Error())
	return delivery.Nack(ctx, p.policy.NormalizeAttempt(queue.NackOptions{
		Delay:   p.policy.Backoff(attempt),
		Requeue: true,
		Reason:  err.Error(),
	}, attempt))
}

// ProcessNext dequeues one delivery and processes it.
func (p *RecoveryProcessor) ProcessNext(ctx context.Context, dequeuer queue.Dequeuer, attempt int) error {
	if dequeuer == nil {
		return fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	return p.Process(ctx, delivery, attempt)
}

func permanentRecoveryFailure(err error) bool {
	return core.HasTextCode(err, core.ErrorAttemptNotRecoverable) ||
		core.HasTextCode(err, core.ErrorNotFound) ||
		core.HasTextCode(err, core.ErrorBadInput)
}

type ResumableAttemptLister interface {
	ListResumable(ctx context.Context, limit int) ([]core.LinkAttempt, error)
}

// RecoverySweeper re-enqueues partially linked attempts found in storage,
// covering runs whose original enqueue was lost.
type RecoverySweeper struct {
	lister   ResumableAttemptLister
	enqueuer core.RecoveryEnqueuer
	logger   glog.Logger
}

func NewRecoverySweeper(lister ResumableAttemptLister, enqueuer core.RecoveryEnqueuer, logger glog.Logger) *RecoverySweeper {
	return &RecoverySweeper{lister: lister, enqueuer: enqueuer, logger: glog.Ensure(logger)}
}

func (s *RecoverySweeper) Sweep(ctx context.Context, limit int) (int, error) {
	if s == nil || s.lister == nil || s.enqueuer == nil {
		return 0, fmt.Errorf("gojob: recovery sweeper is not configured")
	}
	attempts, err := s.lister.ListResumable(ctx, limit)
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, attempt := range attempts {
		attempt.AccessToken = ""
		if err := s.enqueuer.EnqueueLinkRecovery(ctx, attempt); err != nil {
			s.logger.Warn("link recovery sweep enqueue failed", "attempt_id", attempt.ID, "error", err.Error())
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

// WorkerHook reports recovery worker lifecycle events to the logger and
// metrics recorder.
type WorkerHook struct {
	logger  glog.Logger
	metrics core.MetricsRecorder
}

func NewWorkerHook(logger glog.Logger, metrics core.MetricsRecorder) *WorkerHook {
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &WorkerHook{logger: glog.Ensure(logger), metrics: metrics}
}

func (h *WorkerHook) OnStart(ctx context.Context, event worker.Event) {
	h.logger.Debug("recovery job started", eventArgs(event)...)
}

func (h *WorkerHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.metrics.IncCounter(ctx, "banklink.recovery.success", 1, eventTags(event))
	h.metrics.ObserveHistogram(ctx, "banklink.recovery.duration_ms", float64(event.Duration.Milliseconds()), eventTags(event))
}

func (h *WorkerHook) OnFailure(ctx context.Context, event worker.Event) {
	h.metrics.IncCounter(ctx, "banklink.recovery.failure", 1, eventTags(event))
	h.logger.Error("recovery job failed", eventArgs(event)...)
}

func (h *WorkerHook) OnRetry(ctx context.Context, event worker.Event) {
	h.metrics.IncCounter(ctx, "banklink.recovery.retry", 1, eventTags(event))
	h.logger.Warn("recovery job retrying", eventArgs(event)...)
}

func eventMessage(event worker.Event) *job.ExecutionMessage {
	if event.Message != nil {
		return event.Message
	}
	if event.Delivery != nil {
		return event.Delivery.Message()
	}
	return nil
}

func eventArgs(event worker.Event) []any {
	args := []any{"attempt", event.Attempt}
	if msg := eventMessage(event); msg != nil {
		args = append(args, "job_id", msg.JobID)
		if attemptID, err := AttemptIDFromMessage(msg); err == nil {
			args = append(args, "attempt_id", attemptID)
		}
	}
	if event.Delay > 0 {
		args = append(args, "delay", event.Delay.String())
	}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error())
	}
	return args
}

func eventTags(event worker.Event) map[string]string {
	tags := map[string]string{"job_id": JobIDLinkRecovery}
	if msg := eventMessage(event); msg != nil && strings.TrimSpace(msg.JobID) != "" {
		tags["job_id"] = msg.JobID
	}
	return tags
}

var (
	_ core.RecoveryEnqueuer = (*RecoveryEnqueuer)(nil)
	_ worker.Hook           = (*WorkerHook)(nil)
)
