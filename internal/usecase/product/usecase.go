package product

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sme-lending-backend/internal/domain/lending"
	productDomain "sme-lending-backend/internal/domain/product"
	"sme-lending-backend/internal/domain/uow"
	"sme-lending-backend/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Usecase keeps the catalog consistent and auditable. It never touches
// existing applications: those hold frozen version snapshots of their terms.
type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(tx uow.UnitOfWork) *Usecase { return &Usecase{uow: tx} }

// statusGraph: archived -> draft is disallowed; once approved a product
// cannot revert to an unreviewed state.
var statusGraph = map[productDomain.Status][]productDomain.Status{
	productDomain.StatusDraft:    {productDomain.StatusActive},
	productDomain.StatusActive:   {productDomain.StatusArchived},
	productDomain.StatusArchived: {productDomain.StatusActive},
}

func statusAllowed(from, to productDomain.Status) bool {
	for _, t := range statusGraph[from] {
		if t == to {
			return true
		}
	}
	return false
}

type CreateInput struct {
	OrganizationID string
	Name           string
	Description    string

	Currency      string
	MinAmount     decimal.Decimal
	MaxAmount     decimal.Decimal
	MinTermMonths int
	MaxTermMonths int

	InterestRate              decimal.Decimal
	RatePeriod                string
	AmortizationMethod        string
	RepaymentFrequency        string
	InterestCollectionMethod  string
	InterestRecognitionMethod string
}

func (u *Usecase) Create(ctx context.Context, in CreateInput, actor lending.Actor) (*productDomain.LoanProduct, error) {
	if !actor.Staff() {
		return nil, fmt.Errorf("%w: only staff may manage products", lending.ErrForbidden)
	}
	if in.Name == "" || in.OrganizationID == "" {
		return nil, fmt.Errorf("%w: name and organization_id are required", lending.ErrValidation)
	}
	if in.MaxAmount.LessThan(in.MinAmount) {
		return nil, fmt.Errorf("%w: max_amount below min_amount", lending.ErrValidation)
	}
	if in.MaxTermMonths < in.MinTermMonths {
		return nil, fmt.Errorf("%w: max_term below min_term", lending.ErrValidation)
	}

	p := &productDomain.LoanProduct{
		ProductID:                 id.NewID32(),
		OrganizationID:            in.OrganizationID,
		Name:                      in.Name,
		Description:               in.Description,
		Currency:                  in.Currency,
		MinAmount:                 in.MinAmount,
		MaxAmount:                 in.MaxAmount,
		MinTermMonths:             in.MinTermMonths,
		MaxTermMonths:             in.MaxTermMonths,
		InterestRate:              in.InterestRate,
		RatePeriod:                in.RatePeriod,
		AmortizationMethod:        in.AmortizationMethod,
		RepaymentFrequency:        in.RepaymentFrequency,
		InterestCollectionMethod:  in.InterestCollectionMethod,
		InterestRecognitionMethod: in.InterestRecognitionMethod,
		Status:                    productDomain.StatusDraft,
		Version:                   0,
	}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.Products.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// TransitionStatus moves a product along draft -> active -> archived ->
// active. Activating from draft marks the first committed revision and bumps
// the version counter.
func (u *Usecase) TransitionStatus(ctx context.Context, productID string, newStatus productDomain.Status, reason string, actor lending.Actor) (*productDomain.LoanProduct, error) {
	if !actor.Staff() {
		return nil, fmt.Errorf("%w: only staff may manage products", lending.ErrForbidden)
	}

	var out *productDomain.LoanProduct
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Products.GetByProductIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %s", lending.ErrNotFound, productID)
			}
			return err
		}
		if !statusAllowed(p.Status, newStatus) {
			return fmt.Errorf("%w: product %s -> %s", lending.ErrInvalidTransition, p.Status, newStatus)
		}

		if p.Status == productDomain.StatusDraft && newStatus == productDomain.StatusActive {
			p.Version++
		}
		prev := p.Status
		p.Status = newStatus
		if err := r.Products.Save(ctx, p); err != nil {
			return err
		}
		log.Printf("product %s: %s -> %s (v%d) by %s reason=%q", p.ProductID, prev, newStatus, p.Version, actor.UserID, reason)
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EditInput patches product fields; nil pointers leave a field untouched.
type EditInput struct {
	Name        *string
	Description *string

	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	MinTermMonths *int
	MaxTermMonths *int

	InterestRate              *decimal.Decimal
	RatePeriod                *string
	AmortizationMethod        *string
	RepaymentFrequency        *string
	InterestCollectionMethod  *string
	InterestRecognitionMethod *string
}

// apply mutates p and reports whether any critical pricing/term field
// actually changed value.
func (in EditInput) apply(p *productDomain.LoanProduct) bool {
	critical := false
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.MinAmount != nil && !in.MinAmount.Equal(p.MinAmount) {
		p.MinAmount = *in.MinAmount
		critical = true
	}
	if in.MaxAmount != nil && !in.MaxAmount.Equal(p.MaxAmount) {
		p.MaxAmount = *in.MaxAmount
		critical = true
	}
	if in.MinTermMonths != nil && *in.MinTermMonths != p.MinTermMonths {
		p.MinTermMonths = *in.MinTermMonths
		critical = true
	}
	if in.MaxTermMonths != nil && *in.MaxTermMonths != p.MaxTermMonths {
		p.MaxTermMonths = *in.MaxTermMonths
		critical = true
	}
	if in.InterestRate != nil && !in.InterestRate.Equal(p.InterestRate) {
		p.InterestRate = *in.InterestRate
		critical = true
	}
	if in.RatePeriod != nil && *in.RatePeriod != p.RatePeriod {
		p.RatePeriod = *in.RatePeriod
		critical = true
	}
	if in.AmortizationMethod != nil && *in.AmortizationMethod != p.AmortizationMethod {
		p.AmortizationMethod = *in.AmortizationMethod
		critical = true
	}
	if in.RepaymentFrequency != nil && *in.RepaymentFrequency != p.RepaymentFrequency {
		p.RepaymentFrequency = *in.RepaymentFrequency
		critical = true
	}
	if in.InterestCollectionMethod != nil && *in.InterestCollectionMethod != p.InterestCollectionMethod {
		p.InterestCollectionMethod = *in.InterestCollectionMethod
		critical = true
	}
	if in.InterestRecognitionMethod != nil && *in.InterestRecognitionMethod != p.InterestRecognitionMethod {
		p.InterestRecognitionMethod = *in.InterestRecognitionMethod
		critical = true
	}
	return critical
}

// ApplyEdit applies a patch. A critical change while active bumps the
// version; while draft it does not (nothing has been committed to yet).
// Archived products are read-only.
func (u *Usecase) ApplyEdit(ctx context.Context, productID string, in EditInput, actor lending.Actor) (*productDomain.LoanProduct, error) {
	if !actor.Staff() {
		return nil, fmt.Errorf("%w: only staff may manage products", lending.ErrForbidden)
	}

	var out *productDomain.LoanProduct
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Products.GetByProductIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %s", lending.ErrNotFound, productID)
			}
			return err
		}
		if p.Status == productDomain.StatusArchived {
			return fmt.Errorf("%w: product %s is archived and read-only", lending.ErrPreconditionFailed, productID)
		}

		critical := in.apply(p)
		if critical && p.Status == productDomain.StatusActive {
			p.Version++
		}
		if p.MaxAmount.LessThan(p.MinAmount) {
			return fmt.Errorf("%w: max_amount below min_amount", lending.ErrValidation)
		}
		if p.MaxTermMonths < p.MinTermMonths {
			return fmt.Errorf("%w: max_term below min_term", lending.ErrValidation)
		}
		if err := r.Products.Save(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one product by public id.
func (u *Usecase) Get(ctx context.Context, productID string) (*productDomain.LoanProduct, error) {
	var out *productDomain.LoanProduct
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Products.GetByProductID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %s", lending.ErrNotFound, productID)
			}
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
