package core

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestMemoryReplayLedger_ReplayRejectedWithinTTL(t *testing.T) {
	ledger := NewMemoryReplayLedger(time.Minute)
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	ledger.Now = func() time.Time { return now }

	key := publicTokenReplayKey("public-abc")
	if accepted, err := ledger.Claim(context.Background(), key, time.Minute); err != nil || !accepted {
		t.Fatalf("expected first claim to be accepted, got %v %v", accepted, err)
	}
	if accepted, err := ledger.Claim(context.Background(), key, time.Minute); err != nil || accepted {
		t.Fatalf("expected replay claim to be rejected, got %v %v", accepted, err)
	}

	now = now.Add(2 * time.Minute)
	if accepted, err := ledger.Claim(context.Background(), key, time.Minute); err != nil || !accepted {
		t.Fatalf("expected claim after expiry to be accepted, got %v %v", accepted, err)
	}
}

func TestMemoryReplayLedger_RejectsBlankKey(t *testing.T) {
	ledger := NewMemoryReplayLedger(time.Minute)
	if _, err := ledger.Claim(context.Background(), " ", time.Minute); err == nil {
		t.Fatalf("expected blank key to be rejected")
	}
}

func TestMemoryReplayLedger_EvictsWhenFull(t *testing.T) {
	ledger := NewMemoryReplayLedgerWithLimits(time.Hour, 2)
	for i := 0; i < 5; i++ {
		if _, err := ledger.Claim(context.Background(), fmt.Sprintf("key_%d", i), time.Hour); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	if ledger.Len() != 2 {
		t.Fatalf("expected ledger to stay bounded, got %d", ledger.Len())
	}
}

func TestPublicTokenReplayKey_HidesToken(t *testing.T) {
	key := publicTokenReplayKey("public-abc")
	if strings.Contains(key, "public-abc") {
		t.Fatalf("replay key must not contain the raw token")
	}
	if key != publicTokenReplayKey(" public-abc ") {
		t.Fatalf("expected surrounding whitespace to be ignored")
	}
}
