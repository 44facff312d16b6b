package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidStageTransition = errors.New("core: invalid link stage transition")
	ErrLinkageNotFound        = errors.New("core: bank account linkage not found")
	ErrLinkAttemptNotFound    = errors.New("core: link attempt not found")
	ErrUserProfileNotFound    = errors.New("core: user profile not found")
)

const (
	ProductAuth     = "auth"
	DefaultLanguage = "en"
	CountryCodeUS   = "US"
	ProcessorDwolla = "dwolla"
)

// User is the identity-provider subject enriched with the payment-rail customer
// fields captured at registration.
type User struct {
	ID                 string
	Name               string
	Email              string
	PaymentCustomerID  string
	PaymentCustomerURL string
}

func (u User) ValidateForSession() error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("core: user id is required")
	}
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("core: user name is required")
	}
	return nil
}

type LinkSession struct {
	Token     string
	UserID    string
	Products  []string
	ExpiresAt time.Time
	RequestID string
}

type Account struct {
	ID           string
	Name         string
	OfficialName string
	Mask         string
	Type         string
	Subtype      string
}

// DisplayName is the label used when registering the funding source.
func (a Account) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return strings.TrimSpace(a.OfficialName)
}

type ExchangeResult struct {
	AccessToken string
	ItemID      string
	Account     Account
}

type FundingSource struct {
	URL     string
	Created bool
}

type BankAccountLinkage struct {
	ID               string
	UserID           string
	BankID           string
	AccountID        string
	AccessToken      string
	FundingSourceURL string
	ShareableID      string
	AttemptID        string
	CreatedAt        time.Time
}

// CreateLinkageInput describes one linkage row. AttemptID is optional; when
// set, at most one linkage exists per attempt.
type CreateLinkageInput struct {
	UserID           string
	BankID           string
	AccountID        string
	AccessToken      string
	FundingSourceURL string
	ShareableID      string
	AttemptID        string
}

func (in CreateLinkageInput) Validate() error {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return fmt.Errorf("core: linkage user id is required")
	case strings.TrimSpace(in.BankID) == "":
		return fmt.Errorf("core: linkage bank id is required")
	case strings.TrimSpace(in.AccountID) == "":
		return fmt.Errorf("core: linkage account id is required")
	case strings.TrimSpace(in.AccessToken) == "":
		return fmt.Errorf("core: linkage access token is required")
	case strings.TrimSpace(in.FundingSourceURL) == "":
		return fmt.Errorf("core: linkage funding source url is required")
	case strings.TrimSpace(in.ShareableID) == "":
		return fmt.Errorf("core: linkage shareable id is required")
	}
	return nil
}

type UserProfile struct {
	UserID             string
	Email              string
	PaymentCustomerID  string
	PaymentCustomerURL string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type SaveUserProfileInput struct {
	UserID             string
	Email              string
	PaymentCustomerID  string
	PaymentCustomerURL string
}

func (in SaveUserProfileInput) Validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("core: profile user id is required")
	}
	if strings.TrimSpace(in.PaymentCustomerID) == "" {
		return fmt.Errorf("core: profile payment customer id is required")
	}
	return nil
}

// LinkStage is a node of the forward-only linking state machine.
type LinkStage string

const (
	LinkStageSessionRequested        LinkStage = "session_requested"
	LinkStageWidgetConsented         LinkStage = "widget_consented"
	LinkStageExchanged               LinkStage = "exchanged"
	LinkStageProcessorTokenMinted    LinkStage = "processor_token_minted"
	LinkStageFundingSourceRegistered LinkStage = "funding_source_registered"
	LinkStagePersisted               LinkStage = "persisted"
)

var linkStageOrder = map[LinkStage]int{
	LinkStageSessionRequested:        0,
	LinkStageWidgetConsented:         1,
	LinkStageExchanged:               2,
	LinkStageProcessorTokenMinted:    3,
	LinkStageFundingSourceRegistered: 4,
	LinkStagePersisted:               5,
}

// Next returns the stage that follows s, or false when s is terminal.
func (s LinkStage) Next() (LinkStage, bool) {
	switch s {
	case LinkStageSessionRequested:
		return LinkStageWidgetConsented, true
	case LinkStageWidgetConsented:
		return LinkStageExchanged, true
	case LinkStageExchanged:
		return LinkStageProcessorTokenMinted, true
	case LinkStageProcessorTokenMinted:
		return LinkStageFundingSourceRegistered, true
	case LinkStageFundingSourceRegistered:
		return LinkStagePersisted, true
	default:
		return "", false
	}
}

func (s LinkStage) Valid() bool {
	_, ok := linkStageOrder[s]
	return ok
}

// Reached reports whether s is at or beyond target.
func (s LinkStage) Reached(target LinkStage) bool {
	current, ok := linkStageOrder[s]
	if !ok {
		return false
	}
	wanted, ok := linkStageOrder[target]
	if !ok {
		return false
	}
	return current >= wanted
}

type LinkAttemptStatus string

const (
	LinkAttemptStatusInProgress      LinkAttemptStatus = "in_progress"
	LinkAttemptStatusFailed          LinkAttemptStatus = "failed"
	LinkAttemptStatusPartiallyLinked LinkAttemptStatus = "partially_linked"
	LinkAttemptStatusCompleted       LinkAttemptStatus = "completed"
)

// LinkAttempt tracks one run of the pipeline. It carries just enough state to
// finish the persistence stage when the run stops after registration.
type LinkAttempt struct {
	ID               string
	UserID           string
	Stage            LinkStage
	Status           LinkAttemptStatus
	ItemID           string
	AccountID        string
	BankName         string
	AccessToken      string
	FundingSourceURL string
	LinkageID        string
	LastError        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (a *LinkAttempt) Advance(stage LinkStage, now time.Time) error {
	if a == nil {
		return nil
	}
	if a.Stage == stage {
		a.UpdatedAt = now
		return nil
	}
	next, ok := a.Stage.Next()
	if !ok || next != stage {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStageTransition, a.Stage, stage)
	}
	a.Stage = stage
	a.UpdatedAt = now
	if stage == LinkStagePersisted {
		a.Status = LinkAttemptStatusCompleted
		a.LastError = ""
	}
	return nil
}

func (a *LinkAttempt) Fail(status LinkAttemptStatus, reason string, now time.Time) {
	if a == nil {
		return
	}
	a.Status = status
	a.LastError = strings.TrimSpace(reason)
	a.UpdatedAt = now
}

// Resumable reports whether only the persistence stage is missing.
func (a LinkAttempt) Resumable() bool {
	return a.Status == LinkAttemptStatusPartiallyLinked &&
		a.Stage == LinkStageFundingSourceRegistered &&
		strings.TrimSpace(a.FundingSourceURL) != "" &&
		strings.TrimSpace(a.AccessToken) != ""
}

type LinkResult struct {
	Linkage   BankAccountLinkage
	AttemptID string
	Stage     LinkStage
}
