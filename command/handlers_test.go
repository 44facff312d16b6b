package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-banklink/core"
	gocmd "github.com/goliatone/go-command"
)

func TestLinkBankAccountCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.LinkResult{
		Linkage:   core.BankAccountLinkage{ID: "lnk_1", UserID: "u1", FundingSourceURL: "https://api.dwolla.com/funding-sources/fs1"},
		AttemptID: "att_1",
		Stage:     core.LinkStagePersisted,
	}
	called := false

	svc := stubLinkingService{
		linkFn: func(_ context.Context, publicToken string, user core.User) (core.LinkResult, error) {
			called = true
			if publicToken != "public-sandbox-1" {
				t.Fatalf("expected public token to pass through, got %q", publicToken)
			}
			if user.ID != "u1" || user.PaymentCustomerID != "cust_1" {
				t.Fatalf("unexpected user: %#v", user)
			}
			return expected, nil
		},
	}

	cmd := NewLinkBankAccountCommand(svc)
	collector := gocmd.NewResult[core.LinkResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, LinkBankAccountMessage{
		PublicToken: "public-sandbox-1",
		User:        core.User{ID: "u1", PaymentCustomerID: "cust_1"},
	})
	if err != nil {
		t.Fatalf("execute link: %v", err)
	}
	if !called {
		t.Fatalf("expected linking service invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.Linkage.ID != "lnk_1" || result.Stage != core.LinkStagePersisted {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestLinkingCommands_DelegateToService(t *testing.T) {
	t.Run("create link session", func(t *testing.T) {
		svc := stubLinkingService{
			sessionFn: func(_ context.Context, user core.User) (core.LinkSession, error) {
				return core.LinkSession{Token: "link-sandbox-1", UserID: user.ID}, nil
			},
		}
		collector := gocmd.NewResult[core.LinkSession]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		err := NewCreateLinkSessionCommand(svc).Execute(ctx, CreateLinkSessionMessage{User: core.User{ID: "u1", Name: "Ada"}})
		if err != nil {
			t.Fatalf("execute create session: %v", err)
		}
		session, ok := collector.Load()
		if !ok || session.Token != "link-sandbox-1" || session.UserID != "u1" {
			t.Fatalf("unexpected session: %#v", session)
		}
	})

	t.Run("resume linkage", func(t *testing.T) {
		svc := stubLinkingService{
			resumeFn: func(_ context.Context, attemptID string) (core.LinkResult, error) {
				if attemptID != "att_9" {
					t.Fatalf("unexpected attempt id %q", attemptID)
				}
				return core.LinkResult{AttemptID: attemptID, Stage: core.LinkStagePersisted}, nil
			},
		}
		collector := gocmd.NewResult[core.LinkResult]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := NewResumeLinkageCommand(svc).Execute(ctx, ResumeLinkageMessage{AttemptID: "att_9"}); err != nil {
			t.Fatalf("execute resume: %v", err)
		}
		result, ok := collector.Load()
		if !ok || result.AttemptID != "att_9" {
			t.Fatalf("unexpected resume result: %#v", result)
		}
	})

	t.Run("create linkage", func(t *testing.T) {
		called := false
		svc := stubLinkingService{
			createFn: func(_ context.Context, in core.CreateLinkageInput) (core.BankAccountLinkage, error) {
				called = true
				return core.BankAccountLinkage{ID: "lnk_2", UserID: in.UserID}, nil
			},
		}
		err := NewCreateLinkageCommand(svc).Execute(context.Background(), CreateLinkageMessage{
			Input: core.CreateLinkageInput{UserID: "u1"},
		})
		if err != nil {
			t.Fatalf("execute create linkage: %v", err)
		}
		if !called {
			t.Fatalf("expected create linkage invocation")
		}
	})

	t.Run("save user profile", func(t *testing.T) {
		svc := stubProfileService{
			saveFn: func(_ context.Context, in core.SaveUserProfileInput) (core.UserProfile, error) {
				return core.UserProfile{UserID: in.UserID, PaymentCustomerID: in.PaymentCustomerID}, nil
			},
		}
		collector := gocmd.NewResult[core.UserProfile]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		err := NewSaveUserProfileCommand(svc).Execute(ctx, SaveUserProfileMessage{
			Input: core.SaveUserProfileInput{UserID: "u1", PaymentCustomerID: "cust_1"},
		})
		if err != nil {
			t.Fatalf("execute save profile: %v", err)
		}
		profile, ok := collector.Load()
		if !ok || profile.PaymentCustomerID != "cust_1" {
			t.Fatalf("unexpected profile: %#v", profile)
		}
	})
}

func TestCommand_ServiceErrorIsReturnedWithoutStoringResult(t *testing.T) {
	svc := stubLinkingService{
		sessionFn: func(context.Context, core.User) (core.LinkSession, error) {
			return core.LinkSession{}, fmt.Errorf("aggregator unavailable")
		},
	}
	collector := gocmd.NewResult[core.LinkSession]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := NewCreateLinkSessionCommand(svc).Execute(ctx, CreateLinkSessionMessage{User: core.User{ID: "u1", Name: "Ada"}})
	if err == nil {
		t.Fatalf("expected service error")
	}
	if _, ok := collector.Load(); ok {
		t.Fatalf("expected no stored result on failure")
	}
}

func TestCommand_ExecuteWithoutCollectorStillSucceeds(t *testing.T) {
	svc := stubLinkingService{
		resumeFn: func(context.Context, string) (core.LinkResult, error) {
			return core.LinkResult{AttemptID: "att_1"}, nil
		},
	}
	if err := NewResumeLinkageCommand(svc).Execute(context.Background(), ResumeLinkageMessage{AttemptID: "att_1"}); err != nil {
		t.Fatalf("execute resume: %v", err)
	}
}

type stubLinkingService struct {
	sessionFn func(ctx context.Context, user core.User) (core.LinkSession, error)
	linkFn    func(ctx context.Context, publicToken string, user core.User) (core.LinkResult, error)
	resumeFn  func(ctx context.Context, attemptID string) (core.LinkResult, error)
	createFn  func(ctx context.Context, in core.CreateLinkageInput) (core.BankAccountLinkage, error)
}

func (s stubLinkingService) CreateLinkSession(ctx context.Context, user core.User) (core.LinkSession, error) {
	if s.sessionFn == nil {
		return core.LinkSession{}, nil
	}
	return s.sessionFn(ctx, user)
}

func (s stubLinkingService) LinkBankAccount(ctx context.Context, publicToken string, user core.User) (core.LinkResult, error) {
	if s.linkFn == nil {
		return core.LinkResult{}, nil
	}
	return s.linkFn(ctx, publicToken, user)
}

func (s stubLinkingService) ResumeLinkage(ctx context.Context, attemptID string) (core.LinkResult, error) {
	if s.resumeFn == nil {
		return core.LinkResult{}, nil
	}
	return s.resumeFn(ctx, attemptID)
}

func (s stubLinkingService) CreateBankAccountLinkage(ctx context.Context, in core.CreateLinkageInput) (core.BankAccountLinkage, error) {
	if s.createFn == nil {
		return core.BankAccountLinkage{}, nil
	}
	return s.createFn(ctx, in)
}

type stubProfileService struct {
	saveFn func(ctx context.Context, in core.SaveUserProfileInput) (core.UserProfile, error)
}

func (s stubProfileService) SaveUserProfile(ctx context.Context, in core.SaveUserProfileInput) (core.UserProfile, error) {
	if s.saveFn == nil {
		return core.UserProfile{}, nil
	}
	return s.saveFn(ctx, in)
}
