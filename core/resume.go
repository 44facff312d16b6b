package core

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// ResumeLinkage finishes a partially linked attempt by running the
// persistence stage only. No remote call is repeated. Resuming a completed
// attempt returns its linkage.
func (s *Service) ResumeLinkage(ctx context.Context, attemptID string) (result LinkResult, err error) {
	startedAt := s.clock()
	fields := map[string]any{"attempt_id": attemptID}
	defer func() {
		s.observeOperation(ctx, startedAt, "resume_linkage", err, fields)
	}()

	attemptID = strings.TrimSpace(attemptID)
	if attemptID == "" {
		err = s.mapError(badInputError("core: attempt id is required"))
		return LinkResult{}, err
	}
	if s.attemptStore == nil {
		err = s.mapError(configurationError("core: link attempt store is not configured"))
		return LinkResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.PipelineTimeout)
	defer cancel()
	ctx, span := s.startSpan(ctx, "resume_linkage", attribute.String("banklink.attempt_id", attemptID))
	defer func() { endSpan(span, err) }()

	attempt, err := s.attemptStore.Get(ctx, attemptID)
	if err != nil {
		err = s.mapStoreError(err, "core: link attempt lookup failed")
		return LinkResult{}, err
	}
	fields["user_id"] = attempt.UserID

	if attempt.Status == LinkAttemptStatusCompleted && attempt.LinkageID != "" {
		linkage, getErr := s.GetLinkage(ctx, attempt.LinkageID)
		if getErr != nil {
			err = getErr
			return LinkResult{}, err
		}
		return LinkResult{Linkage: linkage, AttemptID: attempt.ID, Stage: attempt.Stage}, nil
	}
	if !attempt.Resumable() {
		err = s.mapError(conflictError("core: link attempt cannot be resumed from stage "+string(attempt.Stage), ErrorAttemptNotRecoverable))
		return LinkResult{}, err
	}

	unlock, err := s.acquireLinkLock(ctx, attempt.UserID)
	if err != nil {
		err = s.mapError(err)
		return LinkResult{}, err
	}
	defer unlock()

	// reload under the lock so a concurrent resume is not repeated
	attempt, err = s.attemptStore.Get(ctx, attemptID)
	if err != nil {
		err = s.mapStoreError(err, "core: link attempt lookup failed")
		return LinkResult{}, err
	}
	if !attempt.Resumable() {
		err = s.mapError(conflictError("core: link attempt cannot be resumed from stage "+string(attempt.Stage), ErrorAttemptNotRecoverable))
		return LinkResult{}, err
	}

	run := &linkRun{
		service: s,
		user:    User{ID: attempt.UserID},
		attempt: attempt,
		tracked: true,
	}
	linkage, err := run.persist(ctx)
	if err != nil {
		result, err = run.partial(ctx, "create_bank_account_linkage", err, false)
		return result, err
	}
	result = run.complete(ctx, linkage)
	fields["linkage_id"] = linkage.ID
	return result, nil
}
