package banklink

import (
	"fmt"

	banklinkcommand "github.com/goliatone/go-banklink/command"
	banklinkquery "github.com/goliatone/go-banklink/query"
)

type CommandQueryService interface {
	banklinkcommand.LinkingService
	banklinkcommand.ProfileService
	banklinkquery.LinkageReader
	banklinkquery.LinkAttemptReader
	banklinkquery.UserReader
}

type Commands struct {
	CreateLinkSession *banklinkcommand.CreateLinkSessionCommand
	LinkBankAccount   *banklinkcommand.LinkBankAccountCommand
	ResumeLinkage     *banklinkcommand.ResumeLinkageCommand
	CreateLinkage     *banklinkcommand.CreateLinkageCommand
	SaveUserProfile   *banklinkcommand.SaveUserProfileCommand
}

type Queries struct {
	GetLinkage              *banklinkquery.GetLinkageQuery
	GetLinkageByShareableID *banklinkquery.GetLinkageByShareableIDQuery
	ListLinkages            *banklinkquery.ListLinkagesQuery
	GetLinkAttempt          *banklinkquery.GetLinkAttemptQuery
	CurrentUser             *banklinkquery.CurrentUserQuery
	GetUserProfile          *banklinkquery.GetUserProfileQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	userReader banklinkquery.UserReader
}

// WithUserReader replaces the service as the source for identity lookups.
func WithUserReader(reader banklinkquery.UserReader) FacadeOption {
	return func(options *facadeOptions) {
		options.userReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("banklink: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	users := cfg.userReader
	if users == nil {
		users = service
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreateLinkSession: banklinkcommand.NewCreateLinkSessionCommand(service),
		LinkBankAccount:   banklinkcommand.NewLinkBankAccountCommand(service),
		ResumeLinkage:     banklinkcommand.NewResumeLinkageCommand(service),
		CreateLinkage:     banklinkcommand.NewCreateLinkageCommand(service),
		SaveUserProfile:   banklinkcommand.NewSaveUserProfileCommand(service),
	}
	facade.queries = Queries{
		GetLinkage:              banklinkquery.NewGetLinkageQuery(service),
		GetLinkageByShareableID: banklinkquery.NewGetLinkageByShareableIDQuery(service),
		ListLinkages:            banklinkquery.NewListLinkagesQuery(service),
		GetLinkAttempt:          banklinkquery.NewGetLinkAttemptQuery(service),
		CurrentUser:             banklinkquery.NewCurrentUserQuery(users),
		GetUserProfile:          banklinkquery.NewGetUserProfileQuery(users),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
