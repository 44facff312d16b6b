package core

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// MintProcessorToken issues a processor token for the configured payment rail.
func (s *Service) MintProcessorToken(ctx context.Context, accessToken, accountID string) (token string, err error) {
	startedAt := s.clock()
	fields := map[string]any{"account_id": accountID, "processor": s.config.Link.Processor}
	defer func() {
		s.observeOperation(ctx, startedAt, "mint_processor_token", err, fields)
	}()

	token, err = s.mintProcessorToken(ctx, accessToken, accountID)
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	return token, nil
}

func (s *Service) mintProcessorToken(ctx context.Context, accessToken, accountID string) (token string, err error) {
	ctx, span := s.startSpan(ctx, "mint_processor_token",
		attribute.String("banklink.account_id", accountID),
		attribute.String("banklink.processor", s.config.Link.Processor),
	)
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(accessToken) == "" {
		return "", badInputError("core: access token is required")
	}
	if strings.TrimSpace(accountID) == "" {
		return "", badInputError("core: account id is required")
	}
	if s.aggregator == nil {
		return "", configurationError("core: aggregator is not configured")
	}

	token, err = s.aggregator.CreateProcessorToken(ctx, ProcessorTokenRequest{
		AccessToken: strings.TrimSpace(accessToken),
		AccountID:   strings.TrimSpace(accountID),
		Processor:   s.config.Link.Processor,
	})
	if err != nil {
		return "", remoteError(err, "core: processor token request failed")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", emptyResultError("core: aggregator returned an empty processor token", ErrorEmptyResult)
	}
	return token, nil
}
