package query

import (
	"strings"
)

const (
	TypeGetLinkage              = "banklink.query.linkage.get"
	TypeGetLinkageByShareableID = "banklink.query.linkage.get_by_shareable_id"
	TypeListLinkages            = "banklink.query.linkage.list"
	TypeGetLinkAttempt          = "banklink.query.link_attempt.get"
	TypeCurrentUser             = "banklink.query.user.current"
	TypeGetUserProfile          = "banklink.query.user_profile.get"
)

type GetLinkageMessage struct {
	LinkageID string
}

func (GetLinkageMessage) Type() string { return TypeGetLinkage }

func (m GetLinkageMessage) Validate() error {
	if strings.TrimSpace(m.LinkageID) == "" {
		return queryValidationError("linkage_id", "linkage id is required")
	}
	return nil
}

type GetLinkageByShareableIDMessage struct {
	ShareableID string
}

func (GetLinkageByShareableIDMessage) Type() string { return TypeGetLinkageByShareableID }

func (m GetLinkageByShareableIDMessage) Validate() error {
	if strings.TrimSpace(m.ShareableID) == "" {
		return queryValidationError("shareable_id", "shareable id is required")
	}
	return nil
}

type ListLinkagesMessage struct {
	UserID string
}

func (ListLinkagesMessage) Type() string { return TypeListLinkages }

func (m ListLinkagesMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	return nil
}

type GetLinkAttemptMessage struct {
	AttemptID string
}

func (GetLinkAttemptMessage) Type() string { return TypeGetLinkAttempt }

func (m GetLinkAttemptMessage) Validate() error {
	if strings.TrimSpace(m.AttemptID) == "" {
		return queryValidationError("attempt_id", "attempt id is required")
	}
	return nil
}

// CurrentUserMessage carries the opaque session credential issued by the
// identity provider.
type CurrentUserMessage struct {
	Session string
}

func (CurrentUserMessage) Type() string { return TypeCurrentUser }

func (m CurrentUserMessage) Validate() error {
	if strings.TrimSpace(m.Session) == "" {
		return queryValidationError("session", "session is required")
	}
	return nil
}

type GetUserProfileMessage struct {
	UserID string
}

func (GetUserProfileMessage) Type() string { return TypeGetUserProfile }

func (m GetUserProfileMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	return nil
}
