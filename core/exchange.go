package core

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// ExchangeAndDiscover trades a one-time public token for an access token and
// selects the first account of the resulting item. A public token is accepted
// once; any later call with the same token is rejected without reaching the
// aggregator.
func (s *Service) ExchangeAndDiscover(ctx context.Context, publicToken string, user User) (result ExchangeResult, err error) {
	startedAt := s.clock()
	fields := map[string]any{"user_id": user.ID}
	defer func() {
		s.observeOperation(ctx, startedAt, "exchange_and_discover", err, fields)
	}()

	result, err = s.exchangeAndDiscover(ctx, publicToken, user)
	if err != nil {
		err = s.mapError(err)
		return ExchangeResult{}, err
	}
	fields["item_id"] = result.ItemID
	fields["account_id"] = result.Account.ID
	return result, nil
}

func (s *Service) exchangeAndDiscover(ctx context.Context, publicToken string, user User) (result ExchangeResult, err error) {
	ctx, span := s.startSpan(ctx, "exchange_and_discover", attribute.String("banklink.user_id", user.ID))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(user.ID) == "" {
		return ExchangeResult{}, badInputError("core: user id is required")
	}
	if strings.TrimSpace(user.PaymentCustomerID) == "" {
		return ExchangeResult{}, configurationError("core: user has no payment customer id")
	}
	publicToken = strings.TrimSpace(publicToken)
	if publicToken == "" {
		return ExchangeResult{}, badInputError("core: public token is required")
	}
	if s.aggregator == nil {
		return ExchangeResult{}, configurationError("core: aggregator is not configured")
	}

	if s.replayLedger != nil {
		claimed, claimErr := s.replayLedger.Claim(ctx, publicTokenReplayKey(publicToken), s.config.PublicTokenTTL)
		if claimErr != nil {
			return ExchangeResult{}, persistenceError(claimErr, "core: public token claim failed")
		}
		if !claimed {
			return ExchangeResult{}, conflictError("core: public token was already exchanged", ErrorPublicTokenConsumed)
		}
	}

	exchanged, err := s.aggregator.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return ExchangeResult{}, remoteError(err, "core: public token exchange failed")
	}
	accessToken := strings.TrimSpace(exchanged.AccessToken)
	itemID := strings.TrimSpace(exchanged.ItemID)
	if accessToken == "" || itemID == "" {
		return ExchangeResult{}, emptyResultError("core: public token exchange returned no access token or item", ErrorEmptyResult)
	}
	span.SetAttributes(attribute.String("banklink.item_id", itemID))

	accounts, err := s.aggregator.ListAccounts(ctx, accessToken)
	if err != nil {
		return ExchangeResult{}, remoteError(err, "core: account discovery failed")
	}
	if len(accounts) == 0 {
		return ExchangeResult{}, emptyResultError("core: item has no linkable accounts", ErrorNoLinkableAccounts)
	}
	account := accounts[0]
	if strings.TrimSpace(account.ID) == "" {
		return ExchangeResult{}, emptyResultError("core: discovered account has no id", ErrorEmptyResult)
	}
	return ExchangeResult{
		AccessToken: accessToken,
		ItemID:      itemID,
		Account:     account,
	}, nil
}
