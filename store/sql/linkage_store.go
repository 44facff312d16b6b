package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-banklink/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type LinkageStore struct {
	db     *bun.DB
	repo   repository.Repository[*linkageRecord]
	sealer tokenSealer
}

func NewLinkageStore(db *bun.DB, secrets core.SecretProvider) (*LinkageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	if secrets == nil {
		return nil, fmt.Errorf("sqlstore: secret provider is required")
	}
	repo := repository.NewRepository[*linkageRecord](db, linkageHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid linkage repository wiring: %w", err)
		}
	}
	return &LinkageStore{
		db:     db,
		repo:   repo,
		sealer: tokenSealer{secrets: secrets},
	}, nil
}

// Create inserts one row per call. Identical inputs produce distinct linkages
// unless they share an attempt id, in which case the row already written for
// that attempt is returned.
func (s *LinkageStore) Create(ctx context.Context, in core.CreateLinkageInput) (core.BankAccountLinkage, error) {
	if s == nil || s.repo == nil {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: linkage store is not configured")
	}
	in = trimLinkageInput(in)
	if err := in.Validate(); err != nil {
		return core.BankAccountLinkage{}, err
	}
	sealed, err := s.sealer.seal(ctx, in.AccessToken)
	if err != nil {
		return core.BankAccountLinkage{}, err
	}

	record := &linkageRecord{
		ID:                   uuid.NewString(),
		UserID:               in.UserID,
		BankID:               in.BankID,
		AccountID:            in.AccountID,
		EncryptedAccessToken: sealed.Ciphertext,
		EncryptionKeyID:      sealed.KeyID,
		EncryptionVersion:    sealed.Version,
		FundingSourceURL:     in.FundingSourceURL,
		ShareableID:          in.ShareableID,
		AttemptID:            in.AttemptID,
		CreatedAt:            time.Now().UTC(),
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if in.AttemptID != "" {
			if existing, getErr := s.GetByAttemptID(ctx, in.AttemptID); getErr == nil {
				return existing, nil
			}
		}
		return core.BankAccountLinkage{}, err
	}
	linkage := created.toDomain()
	linkage.AccessToken = in.AccessToken
	return linkage, nil
}

func (s *LinkageStore) Get(ctx context.Context, id string) (core.BankAccountLinkage, error) {
	if s == nil || s.db == nil {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: linkage store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: linkage id is required")
	}
	return s.selectOne(ctx, "?TableAlias.id = ?", id)
}

// GetByShareableID returns the most recent linkage for the shareable id.
func (s *LinkageStore) GetByShareableID(ctx context.Context, shareableID string) (core.BankAccountLinkage, error) {
	if s == nil || s.db == nil {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: linkage store is not configured")
	}
	shareableID = strings.TrimSpace(shareableID)
	if shareableID == "" {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: shareable id is required")
	}
	return s.selectOne(ctx, "?TableAlias.shareable_id = ?", shareableID)
}

func (s *LinkageStore) GetByAttemptID(ctx context.Context, attemptID string) (core.BankAccountLinkage, error) {
	if s == nil || s.db == nil {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: linkage store is not configured")
	}
	attemptID = strings.TrimSpace(attemptID)
	if attemptID == "" {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: attempt id is required")
	}
	return s.selectOne(ctx, "?TableAlias.attempt_id = ?", attemptID)
}

func (s *LinkageStore) ListByUser(ctx context.Context, userID string) ([]core.BankAccountLinkage, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: linkage store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("sqlstore: user id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.BankAccountLinkage, 0, len(records))
	for _, record := range records {
		linkage, openErr := s.open(ctx, record)
		if openErr != nil {
			return nil, openErr
		}
		out = append(out, linkage)
	}
	return out, nil
}

func (s *LinkageStore) selectOne(ctx context.Context, where string, arg any) (core.BankAccountLinkage, error) {
	record := &linkageRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where(where, arg).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.BankAccountLinkage{}, core.ErrLinkageNotFound
		}
		return core.BankAccountLinkage{}, err
	}
	return s.open(ctx, record)
}

func (s *LinkageStore) open(ctx context.Context, record *linkageRecord) (core.BankAccountLinkage, error) {
	linkage := record.toDomain()
	token, err := s.sealer.open(ctx, record.EncryptedAccessToken)
	if err != nil {
		return core.BankAccountLinkage{}, err
	}
	linkage.AccessToken = token
	return linkage, nil
}

func (r *linkageRecord) toDomain() core.BankAccountLinkage {
	if r == nil {
		return core.BankAccountLinkage{}
	}
	return core.BankAccountLinkage{
		ID:               r.ID,
		UserID:           r.UserID,
		BankID:           r.BankID,
		AccountID:        r.AccountID,
		FundingSourceURL: r.FundingSourceURL,
		ShareableID:      r.ShareableID,
		AttemptID:        r.AttemptID,
		CreatedAt:        r.CreatedAt,
	}
}

func trimLinkageInput(in core.CreateLinkageInput) core.CreateLinkageInput {
	return core.CreateLinkageInput{
		UserID:           strings.TrimSpace(in.UserID),
		BankID:           strings.TrimSpace(in.BankID),
		AccountID:        strings.TrimSpace(in.AccountID),
		AccessToken:      strings.TrimSpace(in.AccessToken),
		FundingSourceURL: strings.TrimSpace(in.FundingSourceURL),
		ShareableID:      strings.TrimSpace(in.ShareableID),
		AttemptID:        strings.TrimSpace(in.AttemptID),
	}
}
