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

type LinkAttemptStore struct {
	db     *bun.DB
	repo   repository.Repository[*linkAttemptRecord]
	sealer tokenSealer
}

func NewLinkAttemptStore(db *bun.DB, secrets core.SecretProvider) (*LinkAttemptStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	if secrets == nil {
		return nil, fmt.Errorf("sqlstore: secret provider is required")
	}
	repo := repository.NewRepository[*linkAttemptRecord](db, linkAttemptHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid link attempt repository wiring: %w", err)
		}
	}
	return &LinkAttemptStore{
		db:     db,
		repo:   repo,
		sealer: tokenSealer{secrets: secrets},
	}, nil
}

func (s *LinkAttemptStore) Create(ctx context.Context, attempt core.LinkAttempt) (core.LinkAttempt, error) {
	if s == nil || s.repo == nil {
		return core.LinkAttempt{}, fmt.Errorf("sqlstore: link attempt store is not configured")
	}
	attempt.UserID = strings.TrimSpace(attempt.UserID)
	if attempt.UserID == "" {
		return core.LinkAttempt{}, fmt.Errorf("sqlstore: link attempt user id is required")
	}
	if strings.TrimSpace(attempt.ID) == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.Stage == "" {
		attempt.Stage = core.LinkStageSessionRequested
	}
	if attempt.Status == "" {
		attempt.Status = core.LinkAttemptStatusInProgress
	}
	now := time.Now().UTC()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	if attempt.UpdatedAt.IsZero() {
		attempt.UpdatedAt = now
	}

	record, err := s.newRecord(ctx, attempt)
	if err != nil {
		return core.LinkAttempt{}, err
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.LinkAttempt{}, err
	}
	out := created.toDomain()
	out.AccessToken = attempt.AccessToken
	return out, nil
}

// Update overwrites the mutable fields of an existing attempt.
func (s *LinkAttemptStore) Update(ctx context.Context, attempt core.LinkAttempt) (core.LinkAttempt, error) {
	if s == nil || s.db == nil {
		return core.LinkAttempt{}, fmt.Errorf("sqlstore: link attempt store is not configured")
	}
	attempt.ID = strings.TrimSpace(attempt.ID)
	if attempt.ID == "" {
		return core.LinkAttempt{}, fmt.Errorf("sqlstore: link attempt id is required")
	}
	if attempt.UpdatedAt.IsZero() {
		attempt.UpdatedAt = time.Now().UTC()
	}

	record, err := s.newRecord(ctx, attempt)
	if err != nil {
		return core.LinkAttempt{}, err
	}
	res, err := s.db.NewUpdate().
		Model(record).
		Column(
			"stage",
			"status",
			"item_id",
			"account_id",
			"bank_name",
			"encrypted_access_token",
			"encryption_key_id",
			"encryption_version",
			"funding_source_url",
			"linkage_id",
			"last_error",
			"updated_at",
		).
		WherePK().
		Exec(ctx)
	if err != nil {
		return core.LinkAttempt{}, err
	}
	if affected, rowsErr := res.RowsAffected(); rowsErr == nil && affected == 0 {
		return core.LinkAttempt{}, core.ErrLinkAttemptNotFound
	}
	return s.Get(ctx, attempt.ID)
}

func (s *LinkAttemptStore) Get(ctx context.Context, id string) (core.LinkAttempt, error) {
	if s == nil || s.db == nil {
		return core.LinkAttempt{}, fmt.Errorf("sqlstore: link attempt store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.LinkAttempt{}, fmt.Errorf("sqlstore: link attempt id is required")
	}
	record := &linkAttemptRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.LinkAttempt{}, core.ErrLinkAttemptNotFound
		}
		return core.LinkAttempt{}, err
	}
	attempt := record.toDomain()
	attempt.AccessToken, err = s.sealer.open(ctx, record.EncryptedAccessToken)
	if err != nil {
		return core.LinkAttempt{}, err
	}
	return attempt, nil
}

// ListResumable returns partially linked attempts, oldest first.
func (s *LinkAttemptStore) ListResumable(ctx context.Context, limit int) ([]core.LinkAttempt, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: link attempt store is not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("status", "=", string(core.LinkAttemptStatusPartiallyLinked)),
		repository.SelectBy("stage", "=", string(core.LinkStageFundingSourceRegistered)),
		repository.OrderBy("updated_at ASC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.LinkAttempt, 0, len(records))
	for _, record := range records {
		attempt := record.toDomain()
		token, openErr := s.sealer.open(ctx, record.EncryptedAccessToken)
		if openErr != nil {
			return nil, openErr
		}
		attempt.AccessToken = token
		out = append(out, attempt)
	}
	return out, nil
}

func (s *LinkAttemptStore) newRecord(ctx context.Context, attempt core.LinkAttempt) (*linkAttemptRecord, error) {
	sealed, err := s.sealer.seal(ctx, attempt.AccessToken)
	if err != nil {
		return nil, err
	}
	return &linkAttemptRecord{
		ID:                   attempt.ID,
		UserID:               attempt.UserID,
		Stage:                string(attempt.Stage),
		Status:               string(attempt.Status),
		ItemID:               strings.TrimSpace(attempt.ItemID),
		AccountID:            strings.TrimSpace(attempt.AccountID),
		BankName:             strings.TrimSpace(attempt.BankName),
		EncryptedAccessToken: sealed.Ciphertext,
		EncryptionKeyID:      sealed.KeyID,
		EncryptionVersion:    sealed.Version,
		FundingSourceURL:     strings.TrimSpace(attempt.FundingSourceURL),
		LinkageID:            strings.TrimSpace(attempt.LinkageID),
		LastError:            strings.TrimSpace(attempt.LastError),
		CreatedAt:            attempt.CreatedAt.UTC(),
		UpdatedAt:            attempt.UpdatedAt.UTC(),
	}, nil
}

func (r *linkAttemptRecord) toDomain() core.LinkAttempt {
	if r == nil {
		return core.LinkAttempt{}
	}
	return core.LinkAttempt{
		ID:               r.ID,
		UserID:           r.UserID,
		Stage:            core.LinkStage(r.Stage),
		Status:           core.LinkAttemptStatus(r.Status),
		ItemID:           r.ItemID,
		AccountID:        r.AccountID,
		BankName:         r.BankName,
		FundingSourceURL: r.FundingSourceURL,
		LinkageID:        r.LinkageID,
		LastError:        r.LastError,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
