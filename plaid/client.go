package plaid

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-banklink/core"
	"github.com/goliatone/go-banklink/transport"
	goerrors "github.com/goliatone/go-errors"
)

const (
	SandboxBaseURL     = "https://sandbox.plaid.com"
	DevelopmentBaseURL = "https://development.plaid.com"
	ProductionBaseURL  = "https://production.plaid.com"
)

const (
	pathLinkTokenCreate     = "/link/token/create"
	pathPublicTokenExchange = "/item/public_token/exchange"
	pathAccountsGet         = "/accounts/get"
	pathProcessorToken      = "/processor/token/create"
)

type Config struct {
	Environment string        `koanf:"environment" mapstructure:"environment"`
	BaseURL     string        `koanf:"base_url" mapstructure:"base_url"`
	ClientID    string        `koanf:"client_id" mapstructure:"client_id"`
	Secret      string        `koanf:"secret" mapstructure:"secret"`
	Timeout     time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		Environment: "sandbox",
		Timeout:     10 * time.Second,
	}
}

// ResolveBaseURL returns BaseURL when set, otherwise the host for Environment.
func (c Config) ResolveBaseURL() string {
	if base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"); base != "" {
		return base
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "production":
		return ProductionBaseURL
	case "development":
		return DevelopmentBaseURL
	default:
		return SandboxBaseURL
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("plaid: client id is required")
	}
	if strings.TrimSpace(c.Secret) == "" {
		return fmt.Errorf("plaid: secret is required")
	}
	return nil
}

// Client talks to the aggregator JSON API. Credentials travel in the body.
type Client struct {
	config  Config
	baseURL string
	rest    *transport.RESTAdapter
}

type Option func(*Client)

func WithHTTPClient(doer transport.HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.rest = transport.NewRESTAdapter(doer)
		}
	}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "plaid: invalid configuration").
			WithTextCode(core.ErrorConfiguration)
	}
	client := &Client{
		config:  cfg,
		baseURL: cfg.ResolveBaseURL(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.rest == nil {
		client.rest = transport.NewRESTAdapter(&http.Client{Timeout: cfg.Timeout})
	}
	return client, nil
}

type credentials struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type linkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

type linkTokenCreateRequest struct {
	credentials
	ClientName   string        `json:"client_name"`
	User         linkTokenUser `json:"user"`
	Products     []string      `json:"products"`
	CountryCodes []string      `json:"country_codes"`
	Language     string        `json:"language"`
}

type linkTokenCreateResponse struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
	RequestID  string    `json:"request_id"`
}

func (c *Client) CreateLinkToken(ctx context.Context, req core.LinkTokenRequest) (core.LinkTokenResponse, error) {
	payload := linkTokenCreateRequest{
		credentials:  c.credentials(),
		ClientName:   req.ClientName,
		User:         linkTokenUser{ClientUserID: req.ClientUserID},
		Products:     req.Products,
		CountryCodes: req.CountryCodes,
		Language:     req.Language,
	}
	var out linkTokenCreateResponse
	if err := c.post(ctx, pathLinkTokenCreate, payload, &out); err != nil {
		return core.LinkTokenResponse{}, err
	}
	return core.LinkTokenResponse{
		LinkToken:  out.LinkToken,
		Expiration: out.Expiration,
		RequestID:  out.RequestID,
	}, nil
}

type publicTokenExchangeRequest struct {
	credentials
	PublicToken string `json:"public_token"`
}

type publicTokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (core.PublicTokenExchangeResponse, error) {
	var out publicTokenExchangeResponse
	err := c.post(ctx, pathPublicTokenExchange, publicTokenExchangeRequest{
		credentials: c.credentials(),
		PublicToken: publicToken,
	}, &out)
	if err != nil {
		return core.PublicTokenExchangeResponse{}, err
	}
	return core.PublicTokenExchangeResponse{
		AccessToken: out.AccessToken,
		ItemID:      out.ItemID,
		RequestID:   out.RequestID,
	}, nil
}

type accountsGetRequest struct {
	credentials
	AccessToken string `json:"access_token"`
}

type accountPayload struct {
	AccountID    string `json:"account_id"`
	Name         string `json:"name"`
	OfficialName string `json:"official_name"`
	Mask         string `json:"mask"`
	Type         string `json:"type"`
	Subtype      string `json:"subtype"`
}

type accountsGetResponse struct {
	Accounts  []accountPayload `json:"accounts"`
	RequestID string           `json:"request_id"`
}

// ListAccounts preserves the order the aggregator returns.
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]core.Account, error) {
	var out accountsGetResponse
	err := c.post(ctx, pathAccountsGet, accountsGetRequest{
		credentials: c.credentials(),
		AccessToken: accessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	accounts := make([]core.Account, 0, len(out.Accounts))
	for _, account := range out.Accounts {
		accounts = append(accounts, core.Account{
			ID:           account.AccountID,
			Name:         account.Name,
			OfficialName: account.OfficialName,
			Mask:         account.Mask,
			Type:         account.Type,
			Subtype:      account.Subtype,
		})
	}
	return accounts, nil
}

type processorTokenCreateRequest struct {
	credentials
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	Processor   string `json:"processor"`
}

type processorTokenCreateResponse struct {
	ProcessorToken string `json:"processor_token"`
	RequestID      string `json:"request_id"`
}

func (c *Client) CreateProcessorToken(ctx context.Context, req core.ProcessorTokenRequest) (string, error) {
	var out processorTokenCreateResponse
	err := c.post(ctx, pathProcessorToken, processorTokenCreateRequest{
		credentials: c.credentials(),
		AccessToken: req.AccessToken,
		AccountID:   req.AccountID,
		Processor:   req.Processor,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ProcessorToken, nil
}

func (c *Client) credentials() credentials {
	return credentials{
		ClientID: strings.TrimSpace(c.config.ClientID),
		Secret:   strings.TrimSpace(c.config.Secret),
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	res, err := c.rest.DoJSON(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     c.baseURL + path,
		Timeout: c.config.Timeout,
	}, payload)
	if err != nil {
		return err
	}
	if !res.Success() {
		return apiError(res, path)
	}
	return res.DecodeJSON(out)
}

var _ core.Aggregator = (*Client)(nil)
