package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestServiceErrorMapper_AssignsStableCodes(t *testing.T) {
	mapped := serviceErrorMapper(ErrLinkageNotFound)
	if mapped.TextCode != ErrorNotFound || mapped.Code != http.StatusNotFound {
		t.Fatalf("expected not found mapping, got %q %d", mapped.TextCode, mapped.Code)
	}

	mapped = serviceErrorMapper(errors.New("core: link lock already held for \"banklink:user:u1\""))
	if mapped.TextCode != ErrorLinkInProgress {
		t.Fatalf("expected in-progress code, got %q", mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryConflict {
		t.Fatalf("expected conflict category, got %q", mapped.Category)
	}

	mapped = serviceErrorMapper(errors.New("core: user id is required"))
	if mapped.TextCode != ErrorBadInput || mapped.Code != http.StatusBadRequest {
		t.Fatalf("expected bad input mapping, got %q %d", mapped.TextCode, mapped.Code)
	}
}

func TestRemoteError_PreservesEnvelopes(t *testing.T) {
	upstream := goerrors.New("rate limited", goerrors.CategoryRateLimit).WithTextCode(ErrorRateLimited)
	err := remoteError(fmt.Errorf("call: %w", upstream), "core: remote call failed")
	if !HasTextCode(err, ErrorRateLimited) {
		t.Fatalf("expected upstream text code to survive, got %v", err)
	}

	err = remoteError(errors.New("connection refused"), "core: remote call failed")
	if !HasTextCode(err, ErrorRemoteFailure) {
		t.Fatalf("expected remote failure code, got %v", err)
	}
}

func TestLinkError_ServiceEnvelope(t *testing.T) {
	failed := &LinkError{
		Stage:   LinkStageExchanged,
		Failed:  "mint_processor_token",
		Outcome: LinkOutcomeFailed,
		Cause:   emptyResultError("empty processor token", ErrorEmptyResult),
	}
	envelope := failed.ToServiceError()
	if envelope.TextCode != ErrorLinkFailed || envelope.Message != MessageUnableToLink {
		t.Fatalf("unexpected envelope: %#v", envelope)
	}
	if envelope.Metadata["cause_code"] != ErrorEmptyResult || envelope.Metadata["failed_stage"] != "mint_processor_token" {
		t.Fatalf("expected stage metadata, got %#v", envelope.Metadata)
	}

	partial := &LinkError{
		Stage:     LinkStageFundingSourceRegistered,
		Failed:    "create_bank_account_linkage",
		Outcome:   LinkOutcomePartiallyLinked,
		AttemptID: "att_1",
		Cause:     persistenceError(errors.New("disk full"), "linkage create failed"),
	}
	envelope = partial.ToServiceError()
	if envelope.TextCode != ErrorPartiallyLinked || envelope.Message != MessagePartiallyLinked {
		t.Fatalf("unexpected partial envelope: %#v", envelope)
	}
	if envelope.Metadata["attempt_id"] != "att_1" {
		t.Fatalf("expected attempt id metadata")
	}

	wrapped := fmt.Errorf("handler: %w", partial)
	if linkErr, ok := AsLinkError(wrapped); !ok || linkErr != partial {
		t.Fatalf("expected AsLinkError to unwrap")
	}
	if mapped := serviceErrorMapper(wrapped); mapped.TextCode != ErrorPartiallyLinked {
		t.Fatalf("expected mapper to use link error envelope, got %q", mapped.TextCode)
	}
}
