package core

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// RegisterFundingSource attaches the bank account behind processorToken to the
// payment-rail customer. A missing URL is always reported as an error.
func (s *Service) RegisterFundingSource(ctx context.Context, customerID, processorToken, bankName string) (source FundingSource, err error) {
	startedAt := s.clock()
	fields := map[string]any{"customer_id": customerID, "bank_name": bankName}
	defer func() {
		s.observeOperation(ctx, startedAt, "register_funding_source", err, fields)
	}()

	source, err = s.registerFundingSource(ctx, customerID, processorToken, bankName)
	if err != nil {
		err = s.mapError(err)
		return FundingSource{}, err
	}
	fields["funding_source_url"] = source.URL
	fields["created"] = source.Created
	return source, nil
}

func (s *Service) registerFundingSource(ctx context.Context, customerID, processorToken, bankName string) (source FundingSource, err error) {
	ctx, span := s.startSpan(ctx, "register_funding_source", attribute.String("banklink.customer_id", customerID))
	defer func() { endSpan(span, err) }()

	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return FundingSource{}, configurationError("core: payment customer id is required")
	}
	if strings.TrimSpace(processorToken) == "" {
		return FundingSource{}, badInputError("core: processor token is required")
	}
	bankName = strings.TrimSpace(bankName)
	if bankName == "" {
		return FundingSource{}, badInputError("core: bank name is required")
	}
	if s.paymentRail == nil {
		return FundingSource{}, configurationError("core: payment rail is not configured")
	}

	source, err = s.paymentRail.CreateFundingSource(ctx, FundingSourceRequest{
		CustomerID:     customerID,
		ProcessorToken: strings.TrimSpace(processorToken),
		Name:           bankName,
	})
	if err != nil {
		return FundingSource{}, remoteError(err, "core: funding source registration failed")
	}
	source.URL = strings.TrimSpace(source.URL)
	if source.URL == "" {
		return FundingSource{}, emptyResultError("core: funding source registration returned no url", ErrorFundingSourceFailed)
	}
	span.SetAttributes(attribute.Bool("banklink.funding_source_created", source.Created))
	return source, nil
}
