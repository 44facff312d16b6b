package query

import (
	"context"

	"github.com/goliatone/go-banklink/core"
)

type LinkageReader interface {
	GetLinkage(ctx context.Context, id string) (core.BankAccountLinkage, error)
	GetLinkageByShareableID(ctx context.Context, shareableID string) (core.BankAccountLinkage, error)
	ListLinkages(ctx context.Context, userID string) ([]core.BankAccountLinkage, error)
}

type LinkAttemptReader interface {
	GetLinkAttempt(ctx context.Context, id string) (core.LinkAttempt, error)
}

type UserReader interface {
	CurrentUser(ctx context.Context, session string) (core.User, error)
	GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error)
}

type GetLinkageQuery struct {
	reader LinkageReader
}

func NewGetLinkageQuery(reader LinkageReader) *GetLinkageQuery {
	return &GetLinkageQuery{reader: reader}
}

func (q *GetLinkageQuery) Query(ctx context.Context, msg GetLinkageMessage) (core.BankAccountLinkage, error) {
	if q == nil || q.reader == nil {
		return core.BankAccountLinkage{}, queryDependencyError("query: linkage reader is required")
	}
	return q.reader.GetLinkage(ctx, msg.LinkageID)
}

type GetLinkageByShareableIDQuery struct {
	reader LinkageReader
}

func NewGetLinkageByShareableIDQuery(reader LinkageReader) *GetLinkageByShareableIDQuery {
	return &GetLinkageByShareableIDQuery{reader: reader}
}

func (q *GetLinkageByShareableIDQuery) Query(
	ctx context.Context,
	msg GetLinkageByShareableIDMessage,
) (core.BankAccountLinkage, error) {
	if q == nil || q.reader == nil {
		return core.BankAccountLinkage{}, queryDependencyError("query: linkage reader is required")
	}
	return q.reader.GetLinkageByShareableID(ctx, msg.ShareableID)
}

type ListLinkagesQuery struct {
	reader LinkageReader
}

func NewListLinkagesQuery(reader LinkageReader) *ListLinkagesQuery {
	return &ListLinkagesQuery{reader: reader}
}

func (q *ListLinkagesQuery) Query(ctx context.Context, msg ListLinkagesMessage) ([]core.BankAccountLinkage, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: linkage reader is required")
	}
	return q.reader.ListLinkages(ctx, msg.UserID)
}

type GetLinkAttemptQuery struct {
	reader LinkAttemptReader
}

func NewGetLinkAttemptQuery(reader LinkAttemptReader) *GetLinkAttemptQuery {
	return &GetLinkAttemptQuery{reader: reader}
}

func (q *GetLinkAttemptQuery) Query(ctx context.Context, msg GetLinkAttemptMessage) (core.LinkAttempt, error) {
	if q == nil || q.reader == nil {
		return core.LinkAttempt{}, queryDependencyError("query: link attempt reader is required")
	}
	return q.reader.GetLinkAttempt(ctx, msg.AttemptID)
}

type CurrentUserQuery struct {
	reader UserReader
}

func NewCurrentUserQuery(reader UserReader) *CurrentUserQuery {
	return &CurrentUserQuery{reader: reader}
}

func (q *CurrentUserQuery) Query(ctx context.Context, msg CurrentUserMessage) (core.User, error) {
	if q == nil || q.reader == nil {
		return core.User{}, queryDependencyError("query: user reader is required")
	}
	return q.reader.CurrentUser(ctx, msg.Session)
}

type GetUserProfileQuery struct {
	reader UserReader
}

func NewGetUserProfileQuery(reader UserReader) *GetUserProfileQuery {
	return &GetUserProfileQuery{reader: reader}
}

func (q *GetUserProfileQuery) Query(ctx context.Context, msg GetUserProfileMessage) (core.UserProfile, error) {
	if q == nil || q.reader == nil {
		return core.UserProfile{}, queryDependencyError("query: user reader is required")
	}
	return q.reader.GetUserProfile(ctx, msg.UserID)
}
