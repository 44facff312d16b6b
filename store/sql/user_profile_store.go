package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-banklink/core"
	"github.com/uptrace/bun"
)

type UserProfileStore struct {
	db *bun.DB
}

func NewUserProfileStore(db *bun.DB) (*UserProfileStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &UserProfileStore{db: db}, nil
}

// Save inserts the profile or replaces the payment-rail fields of an existing
// one. CreatedAt is kept from the first save.
func (s *UserProfileStore) Save(ctx context.Context, in core.SaveUserProfileInput) (core.UserProfile, error) {
	if s == nil || s.db == nil {
		return core.UserProfile{}, fmt.Errorf("sqlstore: user profile store is not configured")
	}
	in = core.SaveUserProfileInput{
		UserID:             strings.TrimSpace(in.UserID),
		Email:              strings.TrimSpace(in.Email),
		PaymentCustomerID:  strings.TrimSpace(in.PaymentCustomerID),
		PaymentCustomerURL: strings.TrimSpace(in.PaymentCustomerURL),
	}
	if err := in.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	now := time.Now().UTC()
	record := &userProfileRecord{
		UserID:             in.UserID,
		Email:              in.Email,
		PaymentCustomerID:  in.PaymentCustomerID,
		PaymentCustomerURL: in.PaymentCustomerURL,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("payment_customer_id = EXCLUDED.payment_customer_id").
		Set("payment_customer_url = EXCLUDED.payment_customer_url").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return core.UserProfile{}, err
	}
	return s.Get(ctx, in.UserID)
}

func (s *UserProfileStore) Get(ctx context.Context, userID string) (core.UserProfile, error) {
	if s == nil || s.db == nil {
		return core.UserProfile{}, fmt.Errorf("sqlstore: user profile store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return core.UserProfile{}, fmt.Errorf("sqlstore: user id is required")
	}
	record := &userProfileRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.UserProfile{}, core.ErrUserProfileNotFound
		}
		return core.UserProfile{}, err
	}
	return core.UserProfile{
		UserID:             record.UserID,
		Email:              record.Email,
		PaymentCustomerID:  record.PaymentCustomerID,
		PaymentCustomerURL: record.PaymentCustomerURL,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}, nil
}
