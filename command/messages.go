package command

import (
	"strings"

	"github.com/goliatone/go-banklink/core"
)

const (
	TypeCreateLinkSession = "banklink.command.link_session.create"
	TypeLinkBankAccount   = "banklink.command.bank_account.link"
	TypeResumeLinkage     = "banklink.command.linkage.resume"
	TypeCreateLinkage     = "banklink.command.linkage.create"
	TypeSaveUserProfile   = "banklink.command.user_profile.save"
)

type CreateLinkSessionMessage struct {
	User core.User
}

func (CreateLinkSessionMessage) Type() string { return TypeCreateLinkSession }

func (m CreateLinkSessionMessage) Validate() error {
	if strings.TrimSpace(m.User.ID) == "" {
		return commandValidationError("user.id", "user id is required")
	}
	if strings.TrimSpace(m.User.Name) == "" {
		return commandValidationError("user.name", "user name is required")
	}
	return nil
}

type LinkBankAccountMessage struct {
	PublicToken string
	User        core.User
}

func (LinkBankAccountMessage) Type() string { return TypeLinkBankAccount }

func (m LinkBankAccountMessage) Validate() error {
	if strings.TrimSpace(m.PublicToken) == "" {
		return commandValidationError("public_token", "public token is required")
	}
	if strings.TrimSpace(m.User.ID) == "" {
		return commandValidationError("user.id", "user id is required")
	}
	return nil
}

type ResumeLinkageMessage struct {
	AttemptID string
}

func (ResumeLinkageMessage) Type() string { return TypeResumeLinkage }

func (m ResumeLinkageMessage) Validate() error {
	if strings.TrimSpace(m.AttemptID) == "" {
		return commandValidationError("attempt_id", "attempt id is required")
	}
	return nil
}

type CreateLinkageMessage struct {
	Input core.CreateLinkageInput
}

func (CreateLinkageMessage) Type() string { return TypeCreateLinkage }

func (m CreateLinkageMessage) Validate() error {
	return commandWrapValidation(m.Input.Validate(), "command: invalid linkage input")
}

type SaveUserProfileMessage struct {
	Input core.SaveUserProfileInput
}

func (SaveUserProfileMessage) Type() string { return TypeSaveUserProfile }

func (m SaveUserProfileMessage) Validate() error {
	return commandWrapValidation(m.Input.Validate(), "command: invalid user profile input")
}
