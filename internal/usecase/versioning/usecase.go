package versioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	appDomain "sme-lending-backend/internal/domain/application"
	"sme-lending-backend/internal/domain/lending"
	"sme-lending-backend/internal/domain/uow"
	versionDomain "sme-lending-backend/internal/domain/version"
	"sme-lending-backend/internal/infrastructure/cache"
	"sme-lending-backend/internal/usecase/audittrail"
	"sme-lending-backend/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Usecase manages per-application term versions and the single active-version
// pointer. Versions are immutable and additive; activation is an explicit,
// conditional step.
type Usecase struct {
	uow   uow.UnitOfWork
	cache cache.Store
}

func NewUsecase(tx uow.UnitOfWork, store cache.Store) *Usecase {
	return &Usecase{uow: tx, cache: store}
}

type TermsInput struct {
	FundingAmount      decimal.Decimal
	Currency           string
	InterestRate       decimal.Decimal
	RatePeriod         string
	RepaymentStructure string
	RepaymentCycle     string
	TermMonths         int
	GracePeriodDays    int
	FirstPaymentDate   *time.Time
	Fees               []versionDomain.Fee
}

type VersionDTO struct {
	VersionID          string              `json:"version_id"`
	Kind               string              `json:"kind"`
	Active             bool                `json:"active"`
	FundingAmount      decimal.Decimal     `json:"funding_amount"`
	Currency           string              `json:"currency"`
	InterestRate       decimal.Decimal     `json:"interest_rate"`
	RatePeriod         string              `json:"rate_period"`
	RepaymentStructure string              `json:"repayment_structure"`
	RepaymentCycle     string              `json:"repayment_cycle"`
	TermMonths         int                 `json:"term_months"`
	GracePeriodDays    int                 `json:"grace_period_days"`
	FirstPaymentDate   *time.Time          `json:"first_payment_date,omitempty"`
	Fees               []versionDomain.Fee `json:"fees,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

func toDTO(v *versionDomain.ApplicationVersion, activeID *uint64) *VersionDTO {
	return &VersionDTO{
		VersionID:          v.VersionID,
		Kind:               string(v.Kind),
		Active:             activeID != nil && *activeID == v.ID,
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

// CreateCounterOffer inserts a new immutable version row. It does not touch
// the active pointer; activation is a separate call so competing proposals
// can coexist until one is settled on.
func (u *Usecase) CreateCounterOffer(ctx context.Context, applicationID string, in TermsInput, actor lending.Actor) (*VersionDTO, error) {
	if !actor.Staff() {
		return nil, fmt.Errorf("%w: only staff may propose counter-offers", lending.ErrForbidden)
	}
	if in.FundingAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: funding amount must be positive", lending.ErrValidation)
	}
	if in.TermMonths <= 0 {
		return nil, fmt.Errorf("%w: term must be positive", lending.ErrValidation)
	}

	var dto *VersionDTO
	err := u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, a *appDomain.LoanApplication) error {
		if a.Status.Terminal() {
			return fmt.Errorf("%w: application %s is %s", lending.ErrInvalidTransition, applicationID, a.Status)
		}

		v := &versionDomain.ApplicationVersion{
			VersionID:          id.NewID32(),
			ApplicationID:      a.ID,
			Kind:               versionDomain.KindCounterOffer,
			FundingAmount:      in.FundingAmount,
			Currency:           in.Currency,
			InterestRate:       in.InterestRate,
			RatePeriod:         in.RatePeriod,
			RepaymentStructure: in.RepaymentStructure,
			RepaymentCycle:     in.RepaymentCycle,
			TermMonths:         in.TermMonths,
			GracePeriodDays:    in.GracePeriodDays,
			FirstPaymentDate:   in.FirstPaymentDate,
			Fees:               in.Fees,
			CreatedBy:          actor.UserID,
		}
		if err := r.Versions.Create(ctx, v); err != nil {
			return err
		}

		ev := audittrail.CounterOfferCreated(a.ID, actor, string(a.Status), v.VersionID)
		if err := audittrail.Record(ctx, r.Audits, ev); err != nil {
			return err
		}
		dto = toDTO(v, a.ActiveVersionID)
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: application %s", lending.ErrNotFound, applicationID)
		}
		return nil, err
	}

	u.cache.Invalidate(ctx, cache.ApplicationKey(applicationID))
	return dto, nil
}

// Activate flips the active pointer to versionID. When the caller supplies
// expectedActiveVersionID (the public id of the version it believes is
// active), the flip is conditioned on it: a mismatch means someone else won
// the race and the call fails with ErrConflictingVersion.
func (u *Usecase) Activate(ctx context.Context, applicationID, versionID string, expectedActiveVersionID *string, actor lending.Actor) error {
	if !actor.Staff() {
		return fmt.Errorf("%w: only staff may activate versions", lending.ErrForbidden)
	}

	err := u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, a *appDomain.LoanApplication) error {
		if a.Status.Terminal() {
			return fmt.Errorf("%w: application %s is %s", lending.ErrInvalidTransition, applicationID, a.Status)
		}

		v, err := r.Versions.GetByVersionID(ctx, versionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: version %s", lending.ErrNotFound, versionID)
			}
			return err
		}
		if v.ApplicationID != a.ID {
			return fmt.Errorf("%w: version %s does not belong to application %s", lending.ErrNotFound, versionID, applicationID)
		}

		// Resolve the precondition. Default to the row we hold under lock;
		// an explicit expectation from the caller takes priority so stale
		// clients fail loudly instead of overwriting a concurrent choice.
		expected := a.ActiveVersionID
		if expectedActiveVersionID != nil {
			ev, err := r.Versions.GetByVersionID(ctx, *expectedActiveVersionID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: expected active version %s", lending.ErrNotFound, *expectedActiveVersionID)
				}
				return err
			}
			expected = &ev.ID
		}

		ok, err := r.Applications.ActivateVersion(ctx, a.ID, v.ID, expected)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: active version changed concurrently on %s", lending.ErrConflictingVersion, applicationID)
		}
		a.ActiveVersionID = &v.ID
		a.LastUpdatedBy = actor.UserID
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}

		ev := audittrail.VersionActivated(a.ID, actor, string(a.Status), v.VersionID)
		return audittrail.Record(ctx, r.Audits, ev)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: application %s", lending.ErrNotFound, applicationID)
		}
		return err
	}

	u.cache.Invalidate(ctx, cache.ApplicationKey(applicationID))
	return nil
}

// List returns every version of an application, oldest first.
func (u *Usecase) List(ctx context.Context, applicationID string) ([]VersionDTO, error) {
	var out []VersionDTO
	err := u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, a *appDomain.LoanApplication) error {
		vs, err := r.Versions.ListByApplicationID(ctx, a.ID)
		if err != nil {
			return err
		}
		for i := range vs {
			out = append(out, *toDTO(&vs[i], a.ActiveVersionID))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: application %s", lending.ErrNotFound, applicationID)
		}
		return nil, err
	}
	return out, nil
}
