package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	appDomain "sme-lending-backend/internal/domain/application"
	"sme-lending-backend/internal/domain/lending"
	"sme-lending-backend/internal/domain/uow"
	versionDomain "sme-lending-backend/internal/domain/version"
	"sme-lending-backend/internal/infrastructure/cache"
	"sme-lending-backend/internal/notify"
	"sme-lending-backend/internal/usecase/audittrail"
	"sme-lending-backend/internal/usecase/docgate"
	"sme-lending-backend/pkg/id"

	"gorm.io/gorm"
)

// Usecase is the application state machine: every status move goes through
// Transition, inside one database transaction holding a row lock on the
// application.
type Usecase struct {
	uow      uow.UnitOfWork
	apps     appDomain.Repository
	versions versionDomain.Repository
	cache    cache.Store
	notifier notify.Dispatcher
	cacheTTL time.Duration
}

func NewUsecase(tx uow.UnitOfWork, apps appDomain.Repository, versions versionDomain.Repository, store cache.Store, notifier notify.Dispatcher, cacheTTL time.Duration) *Usecase {
	return &Usecase{uow: tx, apps: apps, versions: versions, cache: store, notifier: notifier, cacheTTL: cacheTTL}
}

// Submit creates the application in kyc_kyb_verification with its original
// term version active, freezing a copy of the product's pricing.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput, actor lending.Actor) (*ApplicationDTO, error) {
	if actor.Role == lending.RoleEntrepreneur && actor.UserID != in.EntrepreneurID {
		return nil, fmt.Errorf("%w: entrepreneurs may only submit their own applications", lending.ErrForbidden)
	}

	var dto *ApplicationDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Products.GetByProductID(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %s", lending.ErrNotFound, in.ProductID)
			}
			return err
		}
		if !p.IsActive() {
			return fmt.Errorf("%w: product %s is %s", lending.ErrValidation, p.ProductID, p.Status)
		}
		if p.Currency != in.Currency {
			return fmt.Errorf("%w: product currency is %s", lending.ErrValidation, p.Currency)
		}
		if in.FundingAmount.LessThan(p.MinAmount) || in.FundingAmount.GreaterThan(p.MaxAmount) {
			return fmt.Errorf("%w: amount %s outside product bounds [%s, %s]",
				lending.ErrValidation, in.FundingAmount, p.MinAmount, p.MaxAmount)
		}
		if in.RepaymentPeriodMonths < p.MinTermMonths || in.RepaymentPeriodMonths > p.MaxTermMonths {
			return fmt.Errorf("%w: term %d outside product bounds [%d, %d]",
				lending.ErrValidation, in.RepaymentPeriodMonths, p.MinTermMonths, p.MaxTermMonths)
		}

		now := time.Now().UTC()
		a := &appDomain.LoanApplication{
			ApplicationID:         id.NewID32(),
			DisplayID:             id.NewDisplayID("LA"),
			BusinessID:            in.BusinessID,
			EntrepreneurID:        in.EntrepreneurID,
			ProductID:             p.ProductID,
			FundingAmount:         in.FundingAmount,
			Currency:              in.Currency,
			RepaymentPeriodMonths: in.RepaymentPeriodMonths,
			Status:                appDomain.StatusKYCKYBVerification,
			SubmittedAt:           &now,
			LastUpdatedBy:         actor.UserID,
		}
		if in.ConvertedAmount != nil {
			a.ConvertedAmount.Valid = true
			a.ConvertedAmount.Decimal = *in.ConvertedAmount
		}
		if in.ExchangeRate != nil {
			a.ExchangeRate.Valid = true
			a.ExchangeRate.Decimal = *in.ExchangeRate
		}
		if err := r.Applications.Create(ctx, a); err != nil {
			return err
		}

		// freeze the terms that applied at submission time
		v := &versionDomain.ApplicationVersion{
			VersionID:          id.NewID32(),
			ApplicationID:      a.ID,
			Kind:               versionDomain.KindOriginal,
			FundingAmount:      in.FundingAmount,
			Currency:           in.Currency,
			InterestRate:       p.InterestRate,
			RatePeriod:         p.RatePeriod,
			RepaymentStructure: p.AmortizationMethod,
			RepaymentCycle:     p.RepaymentFrequency,
			TermMonths:         in.RepaymentPeriodMonths,
			GracePeriodDays:    in.GracePeriodDays,
			FirstPaymentDate:   in.FirstPaymentDate,
			CreatedBy:          actor.UserID,
		}
		if err := r.Versions.Create(ctx, v); err != nil {
			return err
		}
		a.ActiveVersionID = &v.ID
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}

		if err := audittrail.Record(ctx, r.Audits, audittrail.Submitted(a, actor)); err != nil {
			return err
		}
		dto = toDTO(a, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.afterCommit(ctx, dto, "application_submitted")
	return dto, nil
}

// Transition validates and executes one edge of the status graph.
func (u *Usecase) Transition(ctx context.Context, applicationID string, in TransitionInput, actor lending.Actor) (*ApplicationDTO, error) {
	var dto *ApplicationDTO
	err := u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, a *appDomain.LoanApplication) error {
		prev := a.Status
		if prev.Terminal() {
			return fmt.Errorf("%w: application %s is %s and final", lending.ErrInvalidTransition, applicationID, prev)
		}
		if !canTransition(prev, in.Requested) {
			return fmt.Errorf("%w: %s -> %s", lending.ErrInvalidTransition, prev, in.Requested)
		}
		if err := u.authorize(a, in, actor); err != nil {
			return err
		}
		if err := u.checkPreconditions(ctx, r, a, in); err != nil {
			return err
		}

		now := time.Now().UTC()
		u.applyStageCompletion(a, in, actor, now)
		u.applyTimeline(a, in, now)
		a.Status = in.Requested
		a.LastUpdatedBy = actor.UserID
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}

		details := map[string]any{}
		if in.Comment != "" {
			details["comment"] = in.Comment
		}
		if in.TermSheetURL != "" {
			details["term_sheet_url"] = in.TermSheetURL
		}
		if in.Reason != "" {
			details["reason"] = in.Reason
		}
		ev := audittrail.StatusChanged(a, actor, prev, in.Requested, details)
		if err := audittrail.Record(ctx, r.Audits, ev); err != nil {
			return err
		}

		var active *versionDomain.ApplicationVersion
		if a.ActiveVersionID != nil {
			if v, verr := r.Versions.GetByID(ctx, *a.ActiveVersionID); verr == nil {
				active = v
			}
		}
		dto = toDTO(a, active)
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: application %s", lending.ErrNotFound, applicationID)
		}
		return nil, err
	}

	u.afterCommit(ctx, dto, "application_status_changed")
	return dto, nil
}

func (u *Usecase) authorize(a *appDomain.LoanApplication, in TransitionInput, actor lending.Actor) error {
	if actor.Role == lending.RoleEntrepreneur {
		// entrepreneurs may only cancel, and only their own application
		if in.Requested != appDomain.StatusCancelled {
			return fmt.Errorf("%w: entrepreneurs may only cancel", lending.ErrForbidden)
		}
		if a.EntrepreneurID != actor.UserID {
			return fmt.Errorf("%w: not the owner of %s", lending.ErrForbidden, a.ApplicationID)
		}
		return nil
	}
	if !roleAllowed(a.Status, actor.Role) {
		return fmt.Errorf("%w: role %s may not act on stage %s", lending.ErrForbidden, actor.Role, a.Status)
	}
	return nil
}

func (u *Usecase) checkPreconditions(ctx context.Context, r uow.Repos, a *appDomain.LoanApplication, in TransitionInput) error {
	if in.Requested == appDomain.StatusRejected {
		if in.Reason == "" {
			return fmt.Errorf("%w: a rejection reason is required", lending.ErrPreconditionFailed)
		}
		return nil
	}
	if in.Requested == appDomain.StatusCancelled {
		return nil
	}

	// forward edge
	if commentRequired[a.Status] && in.Comment == "" {
		return fmt.Errorf("%w: a review comment is required to leave %s", lending.ErrPreconditionFailed, a.Status)
	}
	if a.Status == appDomain.StatusCommitteeDecision && in.TermSheetURL == "" {
		return fmt.Errorf("%w: a signed term sheet is required to leave %s", lending.ErrPreconditionFailed, a.Status)
	}
	if a.Status == appDomain.StatusSigningExecution && a.ContractStatus != appDomain.ContractFullySigned {
		return fmt.Errorf("%w: contract is %s, not fully signed", lending.ErrPreconditionFailed, a.ContractStatus)
	}
	if documentGated[a.Status] {
		gate, err := docgate.CheckAll(ctx, r.Documents, a.ID)
		if err != nil {
			return err
		}
		if !gate.Satisfied() {
			return fmt.Errorf("%w: %d document(s) not verified", lending.ErrPreconditionFailed, len(gate.Outstanding))
		}
	}
	return nil
}

func (u *Usecase) applyStageCompletion(a *appDomain.LoanApplication, in TransitionInput, actor lending.Actor, now time.Time) {
	if in.Requested == appDomain.StatusRejected || in.Requested == appDomain.StatusCancelled {
		return
	}
	done := appDomain.StageCompletion{Comment: in.Comment, CompletedAt: &now, CompletedBy: actor.UserID}
	switch a.Status {
	case appDomain.StatusCreditAnalysis:
		a.CreditAnalysis = done
	case appDomain.StatusHeadOfCreditReview:
		a.HeadOfCreditReview = done
	case appDomain.StatusInternalApprovalCEO:
		a.InternalApprovalCEO = done
	case appDomain.StatusCommitteeDecision:
		a.CommitteeDecision = done
		a.TermSheetURL = in.TermSheetURL
	}
}

// applyTimeline sets milestone timestamps exactly once, never overwriting.
func (u *Usecase) applyTimeline(a *appDomain.LoanApplication, in TransitionInput, now time.Time) {
	switch in.Requested {
	case appDomain.StatusRejected:
		if a.RejectedAt == nil {
			a.RejectedAt = &now
		}
		a.RejectionReason = in.Reason
	case appDomain.StatusCancelled:
		if a.CancelledAt == nil {
			a.CancelledAt = &now
		}
		if in.Reason != "" {
			a.RejectionReason = in.Reason
		}
	case appDomain.StatusApproved:
		if a.ApprovedAt == nil {
			a.ApprovedAt = &now
		}
	case appDomain.StatusDisbursed:
		if a.DisbursedAt == nil {
			a.DisbursedAt = &now
		}
	}
}

// Get is the read-through cached read of one application.
func (u *Usecase) Get(ctx context.Context, applicationID string) (*ApplicationDTO, error) {
	key := cache.ApplicationKey(applicationID)
	if b, ok := u.cache.Get(ctx, key); ok {
		var dto ApplicationDTO
		if err := json.Unmarshal(b, &dto); err == nil {
			return &dto, nil
		}
	}

	a, err := u.apps.GetByApplicationID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: application %s", lending.ErrNotFound, applicationID)
		}
		return nil, err
	}
	var active *versionDomain.ApplicationVersion
	if a.ActiveVersionID != nil {
		if v, err := u.versions.GetByID(ctx, *a.ActiveVersionID); err == nil {
			active = v
		}
	}
	dto := toDTO(a, active)
	if b, err := json.Marshal(dto); err == nil {
		u.cache.Set(ctx, key, b, u.cacheTTL)
	}
	return dto, nil
}

// afterCommit runs the best-effort side effects: cache invalidation and
// notification. Failures never roll anything back.
func (u *Usecase) afterCommit(ctx context.Context, dto *ApplicationDTO, template string) {
	if dto == nil {
		return
	}
	u.cache.Invalidate(ctx, cache.ApplicationKey(dto.ApplicationID), cache.ApplicationKey(dto.DisplayID))
	u.cache.InvalidatePrefix(ctx, cache.BusinessPrefix(dto.BusinessID))
	u.cache.InvalidatePrefix(ctx, cache.UserPrefix(dto.EntrepreneurID))

	if err := u.notifier.Send(ctx, dto.EntrepreneurID, template, map[string]string{
		"display_id": dto.DisplayID,
		"amount":     dto.FundingAmount.StringFixed(2) + " " + dto.Currency,
		"stage":      dto.Status,
	}); err != nil {
		log.Printf("pipeline: notify failed for %s: %v", dto.ApplicationID, err)
	}
}
