package signing

import (
	"context"
	"errors"
	"fmt"
	"time"

	appDomain "sme-lending-backend/internal/domain/application"
	contractDomain "sme-lending-backend/internal/domain/contract"
	"sme-lending-backend/internal/domain/lending"
	"sme-lending-backend/internal/domain/uow"
	"sme-lending-backend/internal/infrastructure/cache"
	"sme-lending-backend/internal/usecase/audittrail"
	"sme-lending-backend/pkg/id"

	"gorm.io/gorm"
)

// Usecase tracks multi-party signatory completion once an application is in
// the signing stage, and moves the application to awaiting_disbursement when
// the last signature lands.
type Usecase struct {
	uow   uow.UnitOfWork
	cache cache.Store
}

func NewUsecase(tx uow.UnitOfWork, store cache.Store) *Usecase {
	return &Usecase{uow: tx, cache: store}
}

type SignatoryInput struct {
	Party        contractDomain.Party
	Name         string
	Email        string
	SigningOrder int
}

// UploadContract registers the generated contract and its required signers.
func (u *Usecase) UploadContract(ctx context.Context, applicationID string, signatories []SignatoryInput, enforceOrder bool, actor lending.Actor) error {
	if !actor.Staff() {
		return fmt.Errorf("%w: only staff may upload contracts", lending.ErrForbidden)
	}
	if len(signatories) == 0 {
		return fmt.Errorf("%w: at least one signatory is required", lending.ErrValidation)
	}

	err := u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, a *appDomain.LoanApplication) error {
		if a.Status != appDomain.StatusDocumentGeneration && a.Status != appDomain.StatusSigningExecution {
			return fmt.Errorf("%w: cannot upload a contract while %s", lending.ErrInvalidTransition, a.Status)
		}
		if a.ContractStatus != appDomain.ContractNone && a.ContractStatus != appDomain.ContractVoided && a.ContractStatus != appDomain.ContractExpired {
			return fmt.Errorf("%w: contract already %s", lending.ErrInvalidTransition, a.ContractStatus)
		}

		for _, s := range signatories {
			if err := r.Signatories.Create(ctx, &contractDomain.Signatory{
				SignatoryID:   id.NewID32(),
				ApplicationID: a.ID,
				Party:         s.Party,
				Name:          s.Name,
				Email:         s.Email,
				SigningOrder:  s.SigningOrder,
			}); err != nil {
				return err
			}
		}
		a.ContractStatus = appDomain.ContractUploaded
		a.EnforceSigningOrder = enforceOrder
		a.LastUpdatedBy = actor.UserID
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}
		ev := audittrail.ContractUpdated(a.ID, actor, string(a.Status), a.ContractStatus)
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

// SendForSigning moves contract_uploaded to contract_sent_for_signing, then
// to contract_in_signing once signing actually opens.
func (u *Usecase) SendForSigning(ctx context.Context, applicationID string, actor lending.Actor) (appDomain.ContractStatus, error) {
	return u.moveContract(ctx, applicationID, actor, map[appDomain.ContractStatus]appDomain.ContractStatus{
		appDomain.ContractUploaded:       appDomain.ContractSentForSigning,
		appDomain.ContractSentForSigning: appDomain.ContractInSigning,
	})
}

// Void terminates the signing flow; the contract must be regenerated.
func (u *Usecase) Void(ctx context.Context, applicationID string, actor lending.Actor) (appDomain.ContractStatus, error) {
	return u.moveContract(ctx, applicationID, actor, map[appDomain.ContractStatus]appDomain.ContractStatus{
		appDomain.ContractUploaded:        appDomain.ContractVoided,
		appDomain.ContractSentForSigning:  appDomain.ContractVoided,
		appDomain.ContractInSigning:       appDomain.ContractVoided,
		appDomain.ContractPartiallySigned: appDomain.ContractVoided,
	})
}

// Expire marks a contract that ran out of signing time.
func (u *Usecase) Expire(ctx context.Context, applicationID string, actor lending.Actor) (appDomain.ContractStatus, error) {
	return u.moveContract(ctx, applicationID, actor, map[appDomain.ContractStatus]appDomain.ContractStatus{
		appDomain.ContractSentForSigning:  appDomain.ContractExpired,
		appDomain.ContractInSigning:       appDomain.ContractExpired,
		appDomain.ContractPartiallySigned: appDomain.ContractExpired,
	})
}

func (u *Usecase) moveContract(ctx context.Context, applicationID string, actor lending.Actor, edges map[appDomain.ContractStatus]appDomain.ContractStatus) (appDomain.ContractStatus, error) {
	if !actor.Staff() {
		return "", fmt.Errorf("%w: only staff may manage contracts", lending.ErrForbidden)
	}
	var out appDomain.ContractStatus
	err := u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, a *appDomain.LoanApplication) error {
		next, ok := edges[a.ContractStatus]
		if !ok {
			return fmt.Errorf("%w: contract %s", lending.ErrInvalidTransition, a.ContractStatus)
		}
		a.ContractStatus = next
		a.LastUpdatedBy = actor.UserID
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}
		out = next
		ev := audittrail.ContractUpdated(a.ID, actor, string(a.Status), next)
		return audittrail.Record(ctx, r.Audits, ev)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: application %s", lending.ErrNotFound, applicationID)
		}
		return "", err
	}
	u.cache.Invalidate(ctx, cache.ApplicationKey(applicationID))
	return out, nil
}

// Advance records one signature and recomputes the aggregate contract status.
// All signatories signed moves the application itself to
// awaiting_disbursement in the same transaction.
func (u *Usecase) Advance(ctx context.Context, applicationID, signatoryID string, signedAt time.Time, actor lending.Actor) (appDomain.ContractStatus, error) {
	var out appDomain.ContractStatus
	err := u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, a *appDomain.LoanApplication) error {
		if a.Status != appDomain.StatusSigningExecution {
			return fmt.Errorf("%w: application is %s, not in signing", lending.ErrInvalidTransition, a.Status)
		}
		switch a.ContractStatus {
		case appDomain.ContractSentForSigning, appDomain.ContractInSigning, appDomain.ContractPartiallySigned:
		default:
			return fmt.Errorf("%w: contract is %s", lending.ErrInvalidTransition, a.ContractStatus)
		}

		s, err := r.Signatories.GetBySignatoryID(ctx, signatoryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: signatory %s", lending.ErrNotFound, signatoryID)
			}
			return err
		}
		if s.ApplicationID != a.ID {
			return fmt.Errorf("%w: signatory %s does not belong to application %s", lending.ErrNotFound, signatoryID, applicationID)
		}

		all, err := r.Signatories.ListByApplicationID(ctx, a.ID)
		if err != nil {
			return err
		}

		if !s.HasSigned {
			if a.EnforceSigningOrder && s.Party == contractDomain.PartyClient {
				for _, other := range all {
					if other.Party == contractDomain.PartyCompany && !other.HasSigned {
						return fmt.Errorf("%w: company-side signatures must complete first", lending.ErrPreconditionFailed)
					}
				}
			}
			at := signedAt.UTC()
			s.HasSigned = true
			s.SignedAt = &at
			if err := r.Signatories.Save(ctx, s); err != nil {
				return err
			}
		}

		signed := 0
		for _, other := range all {
			if other.HasSigned || other.SignatoryID == s.SignatoryID {
				signed++
			}
		}
		switch {
		case signed == len(all):
			a.ContractStatus = appDomain.ContractFullySigned
		case signed > 0:
			a.ContractStatus = appDomain.ContractPartiallySigned
		default:
			a.ContractStatus = appDomain.ContractInSigning
		}

		ev := audittrail.SignatureRecorded(a.ID, actor, string(a.Status), s.SignatoryID, a.ContractStatus)
		if err := audittrail.Record(ctx, r.Audits, ev); err != nil {
			return err
		}

		// the last signature pushes the application forward
		if a.ContractStatus == appDomain.ContractFullySigned {
			prev := a.Status
			a.Status = appDomain.StatusAwaitingDisbursement
			sev := audittrail.StatusChanged(a, actor, prev, a.Status, map[string]any{"trigger": "contract_fully_signed"})
			if err := audittrail.Record(ctx, r.Audits, sev); err != nil {
				return err
			}
		}

		a.LastUpdatedBy = actor.UserID
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}
		out = a.ContractStatus
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: application %s", lending.ErrNotFound, applicationID)
		}
		return "", err
	}
	u.cache.Invalidate(ctx, cache.ApplicationKey(applicationID))
	return out, nil
}
