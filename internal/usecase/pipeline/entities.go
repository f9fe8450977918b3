package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	appDomain "sme-lending-backend/internal/domain/application"
	versionDomain "sme-lending-backend/internal/domain/version"
)

type SubmitInput struct {
	BusinessID     string
	EntrepreneurID string
	ProductID      string

	FundingAmount         decimal.Decimal
	Currency              string
	RepaymentPeriodMonths int
	// Optional multi-currency view of the requested amount.
	ConvertedAmount *decimal.Decimal
	ExchangeRate    *decimal.Decimal

	FirstPaymentDate *time.Time
	GracePeriodDays  int
}

type TransitionInput struct {
	Requested appDomain.Status
	// Review comment; mandatory to leave credit_analysis,
	// head_of_credit_review and internal_approval_ceo.
	Comment string
	// Signed term sheet; mandatory to leave committee_decision.
	TermSheetURL string
	// Mandatory when Requested is rejected.
	Reason string
}

type VersionView struct {
	VersionID          string                `json:"version_id"`
	Kind               string                `json:"kind"`
	FundingAmount      decimal.Decimal       `json:"funding_amount"`
	Currency           string                `json:"currency"`
	InterestRate       decimal.Decimal       `json:"interest_rate"`
	RatePeriod         string                `json:"rate_period"`
	RepaymentStructure string                `json:"repayment_structure"`
	RepaymentCycle     string                `json:"repayment_cycle"`
	TermMonths         int                   `json:"term_months"`
	GracePeriodDays    int                   `json:"grace_period_days"`
	FirstPaymentDate   *time.Time            `json:"first_payment_date,omitempty"`
	Fees               []versionDomain.Fee   `json:"fees,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
}

type ApplicationDTO struct {
	ApplicationID  string `json:"application_id"`
	DisplayID      string `json:"display_id"`
	BusinessID     string `json:"business_id"`
	EntrepreneurID string `json:"entrepreneur_id"`
	ProductID      string `json:"product_id"`

	FundingAmount         decimal.Decimal `json:"funding_amount"`
	Currency              string          `json:"currency"`
	RepaymentPeriodMonths int             `json:"repayment_period_months"`

	Status         string `json:"status"`
	ContractStatus string `json:"contract_status,omitempty"`

	ActiveVersion *VersionView `json:"active_version,omitempty"`

	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	DisbursedAt     *time.Time `json:"disbursed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	LastUpdatedBy string    `json:"last_updated_by,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func versionView(v *versionDomain.ApplicationVersion) *VersionView {
	if v == nil {
		return nil
	}
	return &VersionView{
		VersionID:          v.VersionID,
		Kind:               string(v.Kind),
		FundingAmount:      v.FundingAmount,
		Currency:           v.Currency,
		InterestRate:       v.InterestRate,
		RatePeriod:         v.RatePeriod,
		RepaymentStructure: v.RepaymentStructure,
		RepaymentCycle:     v.RepaymentCycle,
		TermMonths:         v.TermMonths,
		GracePeriodDays:    v.GracePeriodDays,
		FirstPaymentDate:   v.FirstPaymentDate,
		Fees:               v.Fees,
		CreatedAt:          v.CreatedAt,
	}
}

func toDTO(a *appDomain.LoanApplication, active *versionDomain.ApplicationVersion) *ApplicationDTO {
	return &ApplicationDTO{
		ApplicationID:         a.ApplicationID,
		DisplayID:             a.DisplayID,
		BusinessID:            a.BusinessID,
		EntrepreneurID:        a.EntrepreneurID,
		ProductID:             a.ProductID,
		FundingAmount:         a.FundingAmount,
		Currency:              a.Currency,
		RepaymentPeriodMonths: a.RepaymentPeriodMonths,
		Status:                string(a.Status),
		ContractStatus:        string(a.ContractStatus),
		ActiveVersion:         versionView(active),
		SubmittedAt:           a.SubmittedAt,
		ApprovedAt:            a.ApprovedAt,
		RejectedAt:            a.RejectedAt,
		DisbursedAt:           a.DisbursedAt,
		CancelledAt:           a.CancelledAt,
		RejectionReason:       a.RejectionReason,
		LastUpdatedBy:         a.LastUpdatedBy,
		UpdatedAt:             a.UpdatedAt,
		CreatedAt:             a.CreatedAt,
	}
}
