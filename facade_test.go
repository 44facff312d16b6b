package banklink

import (
	"context"
	"testing"

	banklinkcommand "github.com/goliatone/go-banklink/command"
	"github.com/goliatone/go-banklink/core"
	banklinkquery "github.com/goliatone/go-banklink/query"
	gocmd "github.com/goliatone/go-command"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	facade, err := NewFacade(&stubFacadeService{})
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.CreateLinkSession == nil || commands.LinkBankAccount == nil || commands.ResumeLinkage == nil ||
		commands.CreateLinkage == nil || commands.SaveUserProfile == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.GetLinkage == nil || queries.ListLinkages == nil || queries.CurrentUser == nil || queries.GetLinkAttempt == nil {
		t.Fatalf("expected query handlers to be wired")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.LinkResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().LinkBankAccount.Execute(ctx, banklinkcommand.LinkBankAccountMessage{
		PublicToken: "public-sandbox-1",
		User:        core.User{ID: "u1"},
	}); err != nil {
		t.Fatalf("execute link command: %v", err)
	}
	if svc.lastPublicToken != "public-sandbox-1" {
		t.Fatalf("unexpected link delegation payload %q", svc.lastPublicToken)
	}
	result, ok := collector.Load()
	if !ok || result.Linkage.ID != "lnk_1" {
		t.Fatalf("unexpected link result: %#v", result)
	}

	linkages, err := facade.Queries().ListLinkages.Query(context.Background(), banklinkquery.ListLinkagesMessage{UserID: "u1"})
	if err != nil {
		t.Fatalf("query list linkages: %v", err)
	}
	if len(linkages) != 1 || linkages[0].UserID != "u1" {
		t.Fatalf("unexpected linkages: %#v", linkages)
	}
}

func TestFacade_UserReaderOverride(t *testing.T) {
	facade, err := NewFacade(&stubFacadeService{}, WithUserReader(stubUserReader{}))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	user, err := facade.Queries().CurrentUser.Query(context.Background(), banklinkquery.CurrentUserMessage{Session: "sess_1"})
	if err != nil {
		t.Fatalf("query current user: %v", err)
	}
	if user.ID != "override" {
		t.Fatalf("expected override reader, got %#v", user)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

type stubFacadeService struct {
	lastPublicToken string
}

func (s *stubFacadeService) CreateLinkSession(_ context.Context, user core.User) (core.LinkSession, error) {
	return core.LinkSession{Token: "link-sandbox-1", UserID: user.ID}, nil
}

func (s *stubFacadeService) LinkBankAccount(_ context.Context, publicToken string, user core.User) (core.LinkResult, error) {
	s.lastPublicToken = publicToken
	return core.LinkResult{Linkage: core.BankAccountLinkage{ID: "lnk_1", UserID: user.ID}, Stage: core.LinkStagePersisted}, nil
}

func (s *stubFacadeService) ResumeLinkage(_ context.Context, attemptID string) (core.LinkResult, error) {
	return core.LinkResult{AttemptID: attemptID, Stage: core.LinkStagePersisted}, nil
}

func (s *stubFacadeService) CreateBankAccountLinkage(_ context.Context, in core.CreateLinkageInput) (core.BankAccountLinkage, error) {
	return core.BankAccountLinkage{ID: "lnk_2", UserID: in.UserID}, nil
}

func (s *stubFacadeService) SaveUserProfile(_ context.Context, in core.SaveUserProfileInput) (core.UserProfile, error) {
	return core.UserProfile{UserID: in.UserID, PaymentCustomerID: in.PaymentCustomerID}, nil
}

func (s *stubFacadeService) GetLinkage(_ context.Context, id string) (core.BankAccountLinkage, error) {
	return core.BankAccountLinkage{ID: id}, nil
}

func (s *stubFacadeService) GetLinkageByShareableID(_ context.Context, shareableID string) (core.BankAccountLinkage, error) {
	return core.BankAccountLinkage{ID: "lnk_1", ShareableID: shareableID}, nil
}

func (s *stubFacadeService) ListLinkages(_ context.Context, userID string) ([]core.BankAccountLinkage, error) {
	return []core.BankAccountLinkage{{ID: "lnk_1", UserID: userID}}, nil
}

func (s *stubFacadeService) GetLinkAttempt(_ context.Context, id string) (core.LinkAttempt, error) {
	return core.LinkAttempt{ID: id}, nil
}

func (s *stubFacadeService) CurrentUser(context.Context, string) (core.User, error) {
	return core.User{ID: "u1"}, nil
}

func (s *stubFacadeService) GetUserProfile(_ context.Context, userID string) (core.UserProfile, error) {
	return core.UserProfile{UserID: userID}, nil
}

type stubUserReader struct{}

func (stubUserReader) CurrentUser(context.Context, string) (core.User, error) {
	return core.User{ID: "override"}, nil
}

func (stubUserReader) GetUserProfile(_ context.Context, userID string) (core.UserProfile, error) {
	return core.UserProfile{UserID: userID}, nil
}

var (
	_ CommandQueryService = (*stubFacadeService)(nil)
	_ CommandQueryService = (*core.Service)(nil)
)
