package command

import (
	"context"

	"github.com/goliatone/go-banklink/core"
	gocmd "github.com/goliatone/go-command"
)

type LinkingService interface {
	CreateLinkSession(ctx context.Context, user core.User) (core.LinkSession, error)
	LinkBankAccount(ctx context.Context, publicToken string, user core.User) (core.LinkResult, error)
	ResumeLinkage(ctx context.Context, attemptID string) (core.LinkResult, error)
	CreateBankAccountLinkage(ctx context.Context, in core.CreateLinkageInput) (core.BankAccountLinkage, error)
}

type ProfileService interface {
	SaveUserProfile(ctx context.Context, in core.SaveUserProfileInput) (core.UserProfile, error)
}

type CreateLinkSessionCommand struct {
	service LinkingService
}

func NewCreateLinkSessionCommand(service LinkingService) *CreateLinkSessionCommand {
	return &CreateLinkSessionCommand{service: service}
}

func (c *CreateLinkSessionCommand) Execute(ctx context.Context, msg CreateLinkSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: link session service is required")
	}
	out, err := c.service.CreateLinkSession(ctx, msg.User)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type LinkBankAccountCommand struct {
	service LinkingService
}

func NewLinkBankAccountCommand(service LinkingService) *LinkBankAccountCommand {
	return &LinkBankAccountCommand{service: service}
}

// Execute runs the full linking pipeline. A partially linked failure is
// returned as the *core.LinkError so callers can schedule recovery.
func (c *LinkBankAccountCommand) Execute(ctx context.Context, msg LinkBankAccountMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: linking service is required")
	}
	out, err := c.service.LinkBankAccount(ctx, msg.PublicToken, msg.User)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ResumeLinkageCommand struct {
	service LinkingService
}

func NewResumeLinkageCommand(service LinkingService) *ResumeLinkageCommand {
	return &ResumeLinkageCommand{service: service}
}

func (c *ResumeLinkageCommand) Execute(ctx context.Context, msg ResumeLinkageMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: linking service is required")
	}
	out, err := c.service.ResumeLinkage(ctx, msg.AttemptID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateLinkageCommand struct {
	service LinkingService
}

func NewCreateLinkageCommand(service LinkingService) *CreateLinkageCommand {
	return &CreateLinkageCommand{service: service}
}

func (c *CreateLinkageCommand) Execute(ctx context.Context, msg CreateLinkageMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: linkage service is required")
	}
	out, err := c.service.CreateBankAccountLinkage(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SaveUserProfileCommand struct {
	service ProfileService
}

func NewSaveUserProfileCommand(service ProfileService) *SaveUserProfileCommand {
	return &SaveUserProfileCommand{service: service}
}

func (c *SaveUserProfileCommand) Execute(ctx context.Context, msg SaveUserProfileMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: user profile service is required")
	}
	out, err := c.service.SaveUserProfile(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
