package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

type LoanProduct struct {
	ID uint64 `gorm:"primaryKey;column:id" json:"-"`
	// Public identifier (32-char lowercase hex)
	ProductID      string `gorm:"size:32;uniqueIndex:ux_loan_products_product_id" json:"product_id"`
	OrganizationID string `gorm:"size:32;not null;index:idx_loan_products_org" json:"organization_id"`

	Name        string `gorm:"size:128;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Currency      string          `gorm:"size:3" json:"currency"`
	MinAmount     decimal.Decimal `gorm:"type:decimal(18,2)" json:"min_amount"`
	MaxAmount     decimal.Decimal `gorm:"type:decimal(18,2)" json:"max_amount"`
	MinTermMonths int             `json:"min_term_months"`
	MaxTermMonths int             `json:"max_term_months"`

	InterestRate              decimal.Decimal `gorm:"type:decimal(8,5)" json:"interest_rate"`
	RatePeriod                string          `gorm:"size:16" json:"rate_period"`
	AmortizationMethod        string          `gorm:"size:32" json:"amortization_method"`
	RepaymentFrequency        string          `gorm:"size:16" json:"repayment_frequency"`
	InterestCollectionMethod  string          `gorm:"size:32" json:"interest_collection_method"`
	InterestRecognitionMethod string          `gorm:"size:32" json:"interest_recognition_method"`

	Status Status `gorm:"size:16;not null;default:'draft'" json:"status"`
	// Monotonic revision counter; bumped on draft→active and on critical
	// edits while active.
	Version int `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (LoanProduct) TableName() string { return "loan_products" }

// IsActive is the derived view of the legacy boolean; status is authoritative.
func (p *LoanProduct) IsActive() bool { return p.Status == StatusActive }
