package application

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusKYCKYBVerification   Status = "kyc_kyb_verification"
	StatusEligibilityCheck     Status = "eligibility_check"
	StatusCreditAnalysis       Status = "credit_analysis"
	StatusHeadOfCreditReview   Status = "head_of_credit_review"
	StatusInternalApprovalCEO  Status = "internal_approval_ceo"
	StatusCommitteeDecision    Status = "committee_decision"
	StatusSMEOfferApproval     Status = "sme_offer_approval"
	StatusDocumentGeneration   Status = "document_generation"
	StatusSigningExecution     Status = "signing_execution"
	StatusAwaitingDisbursement Status = "awaiting_disbursement"
	StatusDisbursed            Status = "disbursed"
	StatusApproved             Status = "approved"
	StatusRejected             Status = "rejected"
	StatusCancelled            Status = "cancelled"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusDisbursed || s == StatusRejected || s == StatusCancelled
}

// ContractStatus is the signing sub-state once an application reaches
// signing_execution.
type ContractStatus string

const (
	ContractNone            ContractStatus = ""
	ContractUploaded        ContractStatus = "contract_uploaded"
	ContractSentForSigning  ContractStatus = "contract_sent_for_signing"
	ContractInSigning       ContractStatus = "contract_in_signing"
	ContractPartiallySigned ContractStatus = "contract_partially_signed"
	ContractFullySigned     ContractStatus = "contract_fully_signed"
	ContractVoided          ContractStatus = "contract_voided"
	ContractExpired         ContractStatus = "contract_expired"
)

// StageCompletion records who closed a review stage, when, and with what
// comment. Embedded once per commented stage.
type StageCompletion struct {
	Comment     string     `gorm:"type:text" json:"comment,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy string     `gorm:"size:32" json:"completed_by,omitempty"`
}

type LoanApplication struct {
	ID uint64 `gorm:"primaryKey;column:id" json:"-"`
	// Public identifier (32-char lowercase hex)
	ApplicationID string `gorm:"size:32;uniqueIndex:ux_applications_app_id_active" json:"application_id"`
	// Human-readable identifier shown to entrepreneurs (e.g. LA-2026-004821)
	DisplayID string `gorm:"size:20;uniqueIndex:ux_applications_display_id" json:"display_id"`

	BusinessID     string `gorm:"size:32;index:idx_applications_business" json:"business_id"`
	EntrepreneurID string `gorm:"size:32;index:idx_applications_entrepreneur" json:"entrepreneur_id"`
	ProductID      string `gorm:"size:32;index" json:"product_id"`

	FundingAmount   decimal.Decimal     `gorm:"type:decimal(18,2)" json:"funding_amount"`
	Currency        string              `gorm:"size:3" json:"currency"`
	ConvertedAmount decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"converted_amount,omitempty"`
	ExchangeRate    decimal.NullDecimal `gorm:"type:decimal(18,8)" json:"exchange_rate,omitempty"`

	RepaymentPeriodMonths int `json:"repayment_period_months"`

	Status         Status         `gorm:"size:32;index:idx_applications_status" json:"status"`
	ContractStatus ContractStatus `gorm:"size:32" json:"contract_status,omitempty"`
	// Company-side signatories must sign before client-side ones when set.
	EnforceSigningOrder bool `json:"enforce_signing_order"`

	// FK to loan_application_versions.id; exactly one version is active.
	ActiveVersionID *uint64 `gorm:"index" json:"-"`

	CreditAnalysis     StageCompletion `gorm:"embedded;embeddedPrefix:credit_analysis_" json:"credit_analysis"`
	HeadOfCreditReview StageCompletion `gorm:"embedded;embeddedPrefix:hoc_review_" json:"head_of_credit_review"`
	InternalApprovalCEO StageCompletion `gorm:"embedded;embeddedPrefix:ceo_approval_" json:"internal_approval_ceo"`
	CommitteeDecision  StageCompletion `gorm:"embedded;embeddedPrefix:committee_" json:"committee_decision"`
	// Signed term sheet, mandatory to leave committee_decision.
	TermSheetURL string `gorm:"type:text" json:"term_sheet_url,omitempty"`

	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	DisbursedAt     *time.Time `json:"disbursed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	LastUpdatedBy string         `gorm:"size:32" json:"last_updated_by,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy     string         `gorm:"size:32" json:"-"`
}

func (LoanApplication) TableName() string { return "loan_applications" }
