package core

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// CreateLinkSession asks the aggregator for a short-lived link token scoped to
// the user. It returns either a non-empty token or an error.
func (s *Service) CreateLinkSession(ctx context.Context, user User) (session LinkSession, err error) {
	startedAt := s.clock()
	fields := map[string]any{"user_id": user.ID}
	defer func() {
		s.observeOperation(ctx, startedAt, "create_link_session", err, fields)
	}()

	session, err = s.createLinkSession(ctx, user)
	if err != nil {
		err = s.mapError(err)
		return LinkSession{}, err
	}
	fields["request_id"] = session.RequestID
	return session, nil
}

func (s *Service) createLinkSession(ctx context.Context, user User) (session LinkSession, err error) {
	ctx, span := s.startSpan(ctx, "create_link_session", attribute.String("banklink.user_id", user.ID))
	defer func() { endSpan(span, err) }()

	if err = user.ValidateForSession(); err != nil {
		return LinkSession{}, badInputError(err.Error())
	}
	if s.aggregator == nil {
		return LinkSession{}, configurationError("core: aggregator is not configured")
	}

	link := s.config.Link
	response, err := s.aggregator.CreateLinkToken(ctx, LinkTokenRequest{
		ClientUserID: strings.TrimSpace(user.ID),
		ClientName:   strings.TrimSpace(user.Name),
		Products:     append([]string(nil), link.Products...),
		CountryCodes: append([]string(nil), link.CountryCodes...),
		Language:     link.Language,
	})
	if err != nil {
		return LinkSession{}, remoteError(err, "core: link token request failed")
	}
	token := strings.TrimSpace(response.LinkToken)
	if token == "" {
		return LinkSession{}, emptyResultError("core: aggregator returned an empty link token", ErrorEmptyResult)
	}
	return LinkSession{
		Token:     token,
		UserID:    user.ID,
		Products:  append([]string(nil), link.Products...),
		ExpiresAt: response.Expiration,
		RequestID: response.RequestID,
	}, nil
}
