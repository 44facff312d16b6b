package core

import (
	"context"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// CurrentUser resolves the opaque session through the identity gateway and
// joins the stored payment-rail profile. A user without a profile is returned
// with empty payment fields.
func (s *Service) CurrentUser(ctx context.Context, session string) (user User, err error) {
	startedAt := s.clock()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "current_user", err, fields)
	}()

	if strings.TrimSpace(session) == "" {
		err = s.mapError(newServiceError("core: session is required", goerrors.CategoryAuth, ErrorUnauthorized))
		return User{}, err
	}
	if s.identityGateway == nil {
		err = s.mapError(configurationError("core: identity gateway is not configured"))
		return User{}, err
	}
	identity, err := s.identityGateway.CurrentIdentity(ctx, session)
	if err != nil {
		err = s.mapError(remoteError(err, "core: identity lookup failed"))
		return User{}, err
	}
	if strings.TrimSpace(identity.Subject) == "" {
		err = s.mapError(newServiceError("core: identity provider returned no subject", goerrors.CategoryAuth, ErrorUnauthorized))
		return User{}, err
	}
	fields["user_id"] = identity.Subject

	user = User{
		ID:    identity.Subject,
		Name:  identity.Name,
		Email: identity.Email,
	}
	if s.profileStore == nil {
		return user, nil
	}
	profile, profileErr := s.profileStore.Get(ctx, identity.Subject)
	if profileErr != nil {
		if errors.Is(profileErr, ErrUserProfileNotFound) {
			fields["profile"] = "missing"
			return user, nil
		}
		err = s.mapError(persistenceError(profileErr, "core: user profile lookup failed"))
		return User{}, err
	}
	user.PaymentCustomerID = profile.PaymentCustomerID
	user.PaymentCustomerURL = profile.PaymentCustomerURL
	if user.Email == "" {
		user.Email = profile.Email
	}
	return user, nil
}

func (s *Service) SaveUserProfile(ctx context.Context, in SaveUserProfileInput) (profile UserProfile, err error) {
	startedAt := s.clock()
	fields := map[string]any{"user_id": in.UserID}
	defer func() {
		s.observeOperation(ctx, startedAt, "save_user_profile", err, fields)
	}()

	if err = in.Validate(); err != nil {
		err = s.mapError(badInputError(err.Error()))
		return UserProfile{}, err
	}
	if s.profileStore == nil {
		err = s.mapError(configurationError("core: user profile store is not configured"))
		return UserProfile{}, err
	}
	profile, err = s.profileStore.Save(ctx, in)
	if err != nil {
		err = s.mapError(persistenceError(err, "core: user profile save failed"))
		return UserProfile{}, err
	}
	return profile, nil
}

func (s *Service) GetUserProfile(ctx context.Context, userID string) (UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return UserProfile{}, s.mapError(badInputError("core: user id is required"))
	}
	if s.profileStore == nil {
		return UserProfile{}, s.mapError(configurationError("core: user profile store is not configured"))
	}
	profile, err := s.profileStore.Get(ctx, strings.TrimSpace(userID))
	if err != nil {
		return UserProfile{}, s.mapStoreError(err, "core: user profile lookup failed")
	}
	return profile, nil
}
