package docgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	appDomain "sme-lending-backend/internal/domain/application"
	docDomain "sme-lending-backend/internal/domain/document"
	"sme-lending-backend/internal/domain/lending"
	"sme-lending-backend/internal/domain/uow"
	"sme-lending-backend/internal/usecase/audittrail"
	"sme-lending-backend/pkg/id"

	"gorm.io/gorm"
)

type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(tx uow.UnitOfWork) *Usecase { return &Usecase{uow: tx} }

type RecordVerificationInput struct {
	Ref     docDomain.Ref
	Outcome docDomain.Outcome
	// Mandatory when Outcome is rejected.
	Reason string
}

type VerificationDTO struct {
	DocumentType    string     `json:"document_type"`
	DocumentID      string     `json:"document_id"`
	Outcome         string     `json:"outcome"`
	VerifiedBy      string     `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// RecordVerification upserts the single row for (application, type, document)
// and, on approval, locks the source document against further edits.
func (u *Usecase) RecordVerification(ctx context.Context, applicationID string, in RecordVerificationInput, actor lending.Actor) (*VerificationDTO, error) {
	if !actor.Staff() {
		return nil, fmt.Errorf("%w: only staff may verify documents", lending.ErrForbidden)
	}
	switch in.Outcome {
	case docDomain.OutcomeApproved, docDomain.OutcomePending:
	case docDomain.OutcomeRejected:
		if in.Reason == "" {
			return nil, fmt.Errorf("%w: a rejection reason is required", lending.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown outcome %q", lending.ErrValidation, in.Outcome)
	}

	var dto *VerificationDTO
	err := u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, a *appDomain.LoanApplication) error {
		if a.Status.Terminal() {
			return fmt.Errorf("%w: application %s is %s", lending.ErrInvalidTransition, applicationID, a.Status)
		}

		now := time.Now().UTC()

		// find-or-create on the composite key, inside the same tx
		v, err := r.Documents.GetVerification(ctx, a.ID, in.Ref)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			v = &docDomain.Verification{
				ApplicationID: a.ID,
				DocumentType:  in.Ref.Type,
				DocumentID:    in.Ref.DocumentID,
				Outcome:       docDomain.OutcomePending,
			}
			if err := r.Documents.CreateVerification(ctx, v); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		v.Outcome = in.Outcome
		v.VerifiedBy = actor.UserID
		v.VerifiedAt = &now
		v.RejectionReason = in.Reason
		if in.Outcome != docDomain.OutcomeRejected {
			v.RejectionReason = ""
		}
		if err := r.Documents.SaveVerification(ctx, v); err != nil {
			return err
		}

		if in.Outcome == docDomain.OutcomeApproved {
			if err := lockSourceDocument(ctx, r, in.Ref.DocumentID); err != nil {
				return err
			}
		}

		details := map[string]any{
			"document_type": string(in.Ref.Type),
			"document_id":   in.Ref.DocumentID,
			"outcome":       string(in.Outcome),
		}
		if in.Reason != "" {
			details["reason"] = in.Reason
		}
		ev := audittrail.DocumentOutcome(a.ID, actor, string(a.Status), in.Outcome == docDomain.OutcomeApproved, details)
		if err := audittrail.Record(ctx, r.Audits, ev); err != nil {
			return err
		}

		dto = &VerificationDTO{
			DocumentType:    string(v.DocumentType),
			DocumentID:      v.DocumentID,
			Outcome:         string(v.Outcome),
			VerifiedBy:      v.VerifiedBy,
			VerifiedAt:      v.VerifiedAt,
			RejectionReason: v.RejectionReason,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: application %s", lending.ErrNotFound, applicationID)
		}
		return nil, err
	}
	return dto, nil
}

func lockSourceDocument(ctx context.Context, r uow.Repos, documentID string) error {
	d, err := r.Documents.GetDocumentByDocumentID(ctx, documentID)
	if err != nil {
		// The document registry may live upstream of this service; a
		// missing source row is not an error for the verification itself.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if d.Locked {
		return nil
	}
	d.Locked = true
	return r.Documents.SaveDocument(ctx, d)
}

type UpsertDocumentInput struct {
	Type       docDomain.Type
	OwnerID    string
	FiscalYear int
	BankName   string
	URL        string
}

type DocumentDTO struct {
	DocumentID string `json:"document_id"`
	Type       string `json:"type"`
	OwnerID    string `json:"owner_id"`
	FiscalYear int    `json:"fiscal_year,omitempty"`
	BankName   string `json:"bank_name,omitempty"`
	URL        string `json:"url"`
	Locked     bool   `json:"locked"`
}

// UpsertDocument resolves the composite natural key to a single row. A locked
// row rejects the write; replacing a locked document means uploading a new
// one, which gets a fresh document id.
func (u *Usecase) UpsertDocument(ctx context.Context, in UpsertDocumentInput, actor lending.Actor) (*DocumentDTO, error) {
	if in.OwnerID == "" || in.URL == "" {
		return nil, fmt.Errorf("%w: owner_id and url are required", lending.ErrValidation)
	}

	var dto *DocumentDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		d, err := r.Documents.FindByNaturalKey(ctx, in.OwnerID, in.Type, in.FiscalYear, in.BankName)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			d = &docDomain.Document{
				DocumentID: id.NewID32(),
				Type:       in.Type,
				OwnerID:    in.OwnerID,
				FiscalYear: in.FiscalYear,
				BankName:   in.BankName,
				URL:        in.URL,
			}
			if err := r.Documents.CreateDocument(ctx, d); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if d.Locked {
				return fmt.Errorf("%w: document %s is verified and locked", lending.ErrDocumentLocked, d.DocumentID)
			}
			d.URL = in.URL
			if err := r.Documents.SaveDocument(ctx, d); err != nil {
				return err
			}
		}
		dto = &DocumentDTO{
			DocumentID: d.DocumentID,
			Type:       string(d.Type),
			OwnerID:    d.OwnerID,
			FiscalYear: d.FiscalYear,
			BankName:   d.BankName,
			URL:        d.URL,
			Locked:     d.Locked,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}
