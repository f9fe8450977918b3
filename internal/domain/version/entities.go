package version

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindOriginal     Kind = "original"
	KindCounterOffer Kind = "counter_offer"
)

type Fee struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	// flat or percentage
	Type string `json:"type"`
}

// ApplicationVersion is an immutable snapshot of negotiable terms. Rows are
// only ever inserted; a new counter-offer is always a new row.
type ApplicationVersion struct {
	ID uint64 `gorm:"primaryKey;column:id" json:"-"`
	// Public identifier (32-char lowercase hex)
	VersionID     string `gorm:"size:32;uniqueIndex:ux_app_versions_version_id" json:"version_id"`
	ApplicationID uint64 `gorm:"column:application_id;not null;index:idx_app_versions_application" json:"-"`

	Kind Kind `gorm:"size:16;not null" json:"kind"`

	FundingAmount      decimal.Decimal `gorm:"type:decimal(18,2)" json:"funding_amount"`
	Currency           string          `gorm:"size:3" json:"currency"`
	InterestRate       decimal.Decimal `gorm:"type:decimal(8,5)" json:"interest_rate"`
	RatePeriod         string          `gorm:"size:16" json:"rate_period"`
	RepaymentStructure string          `gorm:"size:16" json:"repayment_structure"`
	RepaymentCycle     string          `gorm:"size:16" json:"repayment_cycle"`
	TermMonths         int             `json:"term_months"`
	GracePeriodDays    int             `json:"grace_period_days"`
	FirstPaymentDate   *time.Time      `gorm:"type:date" json:"first_payment_date,omitempty"`
	Fees               []Fee           `gorm:"serializer:json;type:json" json:"fees,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	CreatedBy string    `gorm:"size:32" json:"created_by"`
}

func (ApplicationVersion) TableName() string { return "loan_application_versions" }
