package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type linkageRecord struct {
	bun.BaseModel `bun:"table:banklink_linkages,alias:bl"`

	ID                   string    `bun:"id,pk"`
	UserID               string    `bun:"user_id,notnull"`
	BankID               string    `bun:"bank_id,notnull"`
	AccountID            string    `bun:"account_id,notnull"`
	EncryptedAccessToken []byte    `bun:"encrypted_access_token,notnull"`
	EncryptionKeyID      string    `bun:"encryption_key_id,notnull"`
	EncryptionVersion    int       `bun:"encryption_version,notnull"`
	FundingSourceURL     string    `bun:"funding_source_url,notnull"`
	ShareableID          string    `bun:"shareable_id,notnull"`
	AttemptID            string    `bun:"attempt_id,nullzero"`
	CreatedAt            time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type linkAttemptRecord struct {
	bun.BaseModel `bun:"table:banklink_link_attempts,alias:bla"`

	ID                   string    `bun:"id,pk"`
	UserID               string    `bun:"user_id,notnull"`
	Stage                string    `bun:"stage,notnull"`
	Status               string    `bun:"status,notnull"`
	ItemID               string    `bun:"item_id,notnull"`
	AccountID            string    `bun:"account_id,notnull"`
	BankName             string    `bun:"bank_name,notnull"`
	EncryptedAccessToken []byte    `bun:"encrypted_access_token"`
	EncryptionKeyID      string    `bun:"encryption_key_id,notnull"`
	EncryptionVersion    int       `bun:"encryption_version,notnull"`
	FundingSourceURL     string    `bun:"funding_source_url,notnull"`
	LinkageID            string    `bun:"linkage_id,notnull"`
	LastError            string    `bun:"last_error,notnull"`
	CreatedAt            time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt            time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type userProfileRecord struct {
	bun.BaseModel `bun:"table:banklink_user_profiles,alias:bup"`

	UserID             string    `bun:"user_id,pk"`
	Email              string    `bun:"email,notnull"`
	PaymentCustomerID  string    `bun:"payment_customer_id,notnull"`
	PaymentCustomerURL string    `bun:"payment_customer_url,notnull"`
	CreatedAt          time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
