package dwolla

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-banklink/core"
	"github.com/goliatone/go-banklink/transport"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	SandboxBaseURL    = "https://api-sandbox.dwolla.com"
	ProductionBaseURL = "https://api.dwolla.com"

	ContentTypeHAL = "application/vnd.dwolla.v1.hal+json"

	codeDuplicateResource = "DuplicateResource"
)

var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("banklink:dwolla:funding-sources"))

type Config struct {
	Environment  string        `koanf:"environment" mapstructure:"environment"`
	BaseURL      string        `koanf:"base_url" mapstructure:"base_url"`
	TokenURL     string        `koanf:"token_url" mapstructure:"token_url"`
	ClientID     string        `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string        `koanf:"client_secret" mapstructure:"client_secret"`
	Timeout      time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		Environment: "sandbox",
		Timeout:     10 * time.Second,
	}
}

func (c Config) ResolveBaseURL() string {
	if base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"); base != "" {
		return base
	}
	if strings.EqualFold(strings.TrimSpace(c.Environment), "production") {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

func (c Config) ResolveTokenURL() string {
	if tokenURL := strings.TrimSpace(c.TokenURL); tokenURL != "" {
		return tokenURL
	}
	return c.ResolveBaseURL() + "/token"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("dwolla: client id is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return fmt.Errorf("dwolla: client secret is required")
	}
	return nil
}

// Client registers funding sources on the payment rail. Requests are
// authorized with an application token from the client credentials grant.
type Client struct {
	config  Config
	baseURL string
	rest    *transport.RESTAdapter
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
}

// WithHTTPClient sets the client used for both the token and API requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "dwolla: invalid configuration").
			WithTextCode(core.ErrorConfiguration)
	}

	options := clientOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	base := options.httpClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}

	credentials := clientcredentials.Config{
		ClientID:     strings.TrimSpace(cfg.ClientID),
		ClientSecret: strings.TrimSpace(cfg.ClientSecret),
		TokenURL:     cfg.ResolveTokenURL(),
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	return &Client{
		config:  cfg,
		baseURL: cfg.ResolveBaseURL(),
		rest:    transport.NewRESTAdapter(credentials.Client(tokenCtx)),
	}, nil
}

type fundingSourceRequest struct {
	PlaidToken string `json:"plaidToken"`
	Name       string `json:"name"`
}

// CreateFundingSource attaches a bank account to the customer using the
// processor token. A retry of the same registration returns the existing
// funding source.
func (c *Client) CreateFundingSource(ctx context.Context, req core.FundingSourceRequest) (core.FundingSource, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	processorToken := strings.TrimSpace(req.ProcessorToken)
	name := strings.TrimSpace(req.Name)
	switch {
	case customerID == "":
		return core.FundingSource{}, badInput("dwolla: customer id is required")
	case processorToken == "":
		return core.FundingSource{}, badInput("dwolla: processor token is required")
	case name == "":
		return core.FundingSource{}, badInput("dwolla: funding source name is required")
	}

	path := "/customers/" + url.PathEscape(customerID) + "/funding-sources"
	res, err := c.rest.DoJSON(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Accept":          ContentTypeHAL,
			"Content-Type":    ContentTypeHAL,
			"Idempotency-Key": IdempotencyKey(customerID, processorToken),
		},
		Timeout: c.config.Timeout,
	}, fundingSourceRequest{PlaidToken: processorToken, Name: name})
	if err != nil {
		return core.FundingSource{}, err
	}

	if res.Success() {
		location := res.Header("Location")
		if location == "" {
			return core.FundingSource{}, goerrors.New("dwolla: funding source created without location", goerrors.CategoryExternal).
				WithCode(http.StatusBadGateway).
				WithTextCode(core.ErrorFundingSourceFailed).
				WithMetadata(map[string]any{"status_code": res.StatusCode})
		}
		return core.FundingSource{URL: location, Created: true}, nil
	}

	payload := decodeErrorPayload(res)
	if payload.Code == codeDuplicateResource {
		if existing := payload.aboutHref(); existing != "" {
			return core.FundingSource{URL: existing}, nil
		}
	}
	return core.FundingSource{}, apiError(res, payload, path)
}

// IdempotencyKey is stable for a (customer, processor token) pair so retries
// of one registration collapse on the rail.
func IdempotencyKey(customerID, processorToken string) string {
	seed := strings.TrimSpace(customerID) + "\x00" + strings.TrimSpace(processorToken)
	return uuid.NewSHA1(idempotencyNamespace, []byte(seed)).String()
}

// CustomerIDFromURL returns the trailing id of a customer resource URL.
func CustomerIDFromURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return ""
	}
	idx := strings.LastIndex(trimmed, "/customers/")
	if idx < 0 {
		return ""
	}
	id := trimmed[idx+len("/customers/"):]
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

func badInput(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ErrorBadInput)
}

var _ core.PaymentRail = (*Client)(nil)
