// Package memstore is an in-memory UnitOfWork used by usecase tests. It keeps
// the transactional contract of the real mysql adapter: a callback error rolls
// every write of that callback back, and WithinApplicationTx resolves the
// application row before the callback runs.
//
// Not safe for concurrent use; tests drive it from one goroutine.
package memstore

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"sme-lending-backend/internal/domain/application"
	"sme-lending-backend/internal/domain/audit"
	"sme-lending-backend/internal/domain/contract"
	"sme-lending-backend/internal/domain/document"
	"sme-lending-backend/internal/domain/product"
	"sme-lending-backend/internal/domain/uow"
	"sme-lending-backend/internal/domain/version"
)

type tables struct {
	apps          []application.LoanApplication
	versions      []version.ApplicationVersion
	audits        []audit.AuditEvent
	documents     []document.Document
	verifications []document.Verification
	products      []product.LoanProduct
	signatories   []contract.Signatory
	nextID        uint64
}

type Store struct {
	mu sync.Mutex
	t  tables
}

var _ uow.UnitOfWork = (*Store)(nil)

func New() *Store { return &Store{t: tables{nextID: 1}} }

func (s *Store) id() uint64 {
	n := s.t.nextID
	s.t.nextID++
	return n
}

// snapshot copies every table. Entity structs are stored by value, so a slice
// copy is enough: pointer fields are only ever replaced, never written through.
func (s *Store) snapshot() tables {
	cp := s.t
	cp.apps = append([]application.LoanApplication(nil), s.t.apps...)
	cp.versions = append([]version.ApplicationVersion(nil), s.t.versions...)
	cp.audits = append([]audit.AuditEvent(nil), s.t.audits...)
	cp.documents = append([]document.Document(nil), s.t.documents...)
	cp.verifications = append([]document.Verification(nil), s.t.verifications...)
	cp.products = append([]product.LoanProduct(nil), s.t.products...)
	cp.signatories = append([]contract.Signatory(nil), s.t.signatories...)
	return cp
}

// Repos returns repositories bound to the live tables, usable both inside
// WithinTx callbacks and standalone (the way main wires read paths).
func (s *Store) Repos() uow.Repos {
	return uow.Repos{
		Applications: &appRepo{s},
		Versions:     &versionRepo{s},
		Audits:       &auditRepo{s},
		Documents:    &docRepo{s},
		Products:     &productRepo{s},
		Signatories:  &signRepo{s},
	}
}

func (s *Store) WithinTx(_ context.Context, fn func(r uow.Repos) error) error {
	snap := s.snapshot()
	if err := fn(s.Repos()); err != nil {
		s.t = snap
		return err
	}
	return nil
}

func (s *Store) WithinApplicationTx(ctx context.Context, applicationID string, fn func(r uow.Repos, a *application.LoanApplication) error) error {
	snap := s.snapshot()
	a, err := (&appRepo{s}).GetByApplicationID(ctx, applicationID)
	if err != nil {
		return err
	}
	if err := fn(s.Repos(), a); err != nil {
		s.t = snap
		return err
	}
	return nil
}

// ---- seeding helpers ----

// SeedApplication inserts a row directly, bypassing Submit. Returns the
// stored copy with its assigned id.
func (s *Store) SeedApplication(a application.LoanApplication) application.LoanApplication {
	a.ID = s.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.t.apps = append(s.t.apps, a)
	return a
}

func (s *Store) SeedProduct(p product.LoanProduct) product.LoanProduct {
	p.ID = s.id()
	s.t.products = append(s.t.products, p)
	return p
}

func (s *Store) SeedSignatory(sig contract.Signatory) contract.Signatory {
	sig.ID = s.id()
	s.t.signatories = append(s.t.signatories, sig)
	return sig
}

func (s *Store) SeedDocument(d document.Document) document.Document {
	d.ID = s.id()
	s.t.documents = append(s.t.documents, d)
	return d
}

// AuditCount reports how many events the trail holds for one application.
func (s *Store) AuditCount(appID uint64) int {
	n := 0
	for _, e := range s.t.audits {
		if e.ApplicationID == appID {
			n++
		}
	}
	return n
}

// ---- applications ----

type appRepo struct{ s *Store }

func (r *appRepo) Create(_ context.Context, a *application.LoanApplication) error {
	a.ID = r.s.id()
	a.CreatedAt = time.Now().UTC()
	r.s.t.apps = append(r.s.t.apps, *a)
	return nil
}

func (r *appRepo) GetByApplicationID(_ context.Context, applicationID string) (*application.LoanApplication, error) {
	for i := range r.s.t.apps {
		if r.s.t.apps[i].ApplicationID == applicationID {
			cp := r.s.t.apps[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *appRepo) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*application.LoanApplication, error) {
	return r.GetByApplicationID(ctx, applicationID)
}

func (r *appRepo) Save(_ context.Context, a *application.LoanApplication) error {
	for i := range r.s.t.apps {
		if r.s.t.apps[i].ID == a.ID {
			a.UpdatedAt = time.Now().UTC()
			r.s.t.apps[i] = *a
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *appRepo) ActivateVersion(_ context.Context, appID, versionID uint64, expectedCurrent *uint64) (bool, error) {
	for i := range r.s.t.apps {
		if r.s.t.apps[i].ID != appID {
			continue
		}
		cur := r.s.t.apps[i].ActiveVersionID
		switch {
		case cur == nil && expectedCurrent == nil:
		case cur != nil && expectedCurrent != nil && *cur == *expectedCurrent:
		default:
			return false, nil
		}
		v := versionID
		r.s.t.apps[i].ActiveVersionID = &v
		return true, nil
	}
	return false, nil
}

// ---- versions ----

type versionRepo struct{ s *Store }

func (r *versionRepo) Create(_ context.Context, v *version.ApplicationVersion) error {
	v.ID = r.s.id()
	v.CreatedAt = time.Now().UTC()
	r.s.t.versions = append(r.s.t.versions, *v)
	return nil
}

func (r *versionRepo) GetByVersionID(_ context.Context, versionID string) (*version.ApplicationVersion, error) {
	for i := range r.s.t.versions {
		if r.s.t.versions[i].VersionID == versionID {
			cp := r.s.t.versions[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *versionRepo) GetByID(_ context.Context, id uint64) (*version.ApplicationVersion, error) {
	for i := range r.s.t.versions {
		if r.s.t.versions[i].ID == id {
			cp := r.s.t.versions[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *versionRepo) ListByApplicationID(_ context.Context, appID uint64) ([]version.ApplicationVersion, error) {
	var out []version.ApplicationVersion
	for _, v := range r.s.t.versions {
		if v.ApplicationID == appID {
			out = append(out, v)
		}
	}
	return out, nil
}

// ---- audit ----

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(_ context.Context, e *audit.AuditEvent) error {
	e.ID = r.s.id()
	e.CreatedAt = time.Now().UTC()
	r.s.t.audits = append(r.s.t.audits, *e)
	return nil
}

func (r *auditRepo) ListByApplicationID(_ context.Context, appID uint64, f audit.Filter) ([]audit.AuditEvent, error) {
	var out []audit.AuditEvent
	for _, e := range r.s.t.audits {
		if e.ApplicationID != appID {
			continue
		}
		if len(f.EventTypes) > 0 {
			match := false
			for _, t := range f.EventTypes {
				if e.EventType == t {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if f.Since != nil && e.CreatedAt.Before(*f.Since) {
			continue
		}
		if f.Until != nil && e.CreatedAt.After(*f.Until) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r *auditRepo) CountByApplicationID(_ context.Context, appID uint64) (int64, error) {
	return int64(r.s.AuditCount(appID)), nil
}

// ---- documents ----

type docRepo struct{ s *Store }

func (r *docRepo) GetVerification(_ context.Context, appID uint64, ref document.Ref) (*document.Verification, error) {
	for i := range r.s.t.verifications {
		v := &r.s.t.verifications[i]
		if v.ApplicationID == appID && v.DocumentType == ref.Type && v.DocumentID == ref.DocumentID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *docRepo) ListVerificationsByApplicationID(_ context.Context, appID uint64) ([]document.Verification, error) {
	var out []document.Verification
	for _, v := range r.s.t.verifications {
		if v.ApplicationID == appID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *docRepo) CreateVerification(_ context.Context, v *document.Verification) error {
	v.ID = r.s.id()
	v.CreatedAt = time.Now().UTC()
	r.s.t.verifications = append(r.s.t.verifications, *v)
	return nil
}

func (r *docRepo) SaveVerification(_ context.Context, v *document.Verification) error {
	for i := range r.s.t.verifications {
		if r.s.t.verifications[i].ID == v.ID {
			v.UpdatedAt = time.Now().UTC()
			r.s.t.verifications[i] = *v
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *docRepo) GetDocumentByDocumentID(_ context.Context, documentID string) (*document.Document, error) {
	for i := range r.s.t.documents {
		if r.s.t.documents[i].DocumentID == documentID {
			cp := r.s.t.documents[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *docRepo) FindByNaturalKey(_ context.Context, ownerID string, t document.Type, fiscalYear int, bankName string) (*document.Document, error) {
	for i := range r.s.t.documents {
		d := &r.s.t.documents[i]
		if d.OwnerID == ownerID && d.Type == t && d.FiscalYear == fiscalYear && d.BankName == bankName {
			cp := *d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *docRepo) CreateDocument(_ context.Context, d *document.Document) error {
	d.ID = r.s.id()
	d.CreatedAt = time.Now().UTC()
	r.s.t.documents = append(r.s.t.documents, *d)
	return nil
}

func (r *docRepo) SaveDocument(_ context.Context, d *document.Document) error {
	for i := range r.s.t.documents {
		if r.s.t.documents[i].ID == d.ID {
			d.UpdatedAt = time.Now().UTC()
			r.s.t.documents[i] = *d
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ---- products ----

type productRepo struct{ s *Store }

func (r *productRepo) Create(_ context.Context, p *product.LoanProduct) error {
	p.ID = r.s.id()
	p.CreatedAt = time.Now().UTC()
	r.s.t.products = append(r.s.t.products, *p)
	return nil
}

func (r *productRepo) GetByProductID(_ context.Context, productID string) (*product.LoanProduct, error) {
	for i := range r.s.t.products {
		if r.s.t.products[i].ProductID == productID {
			cp := r.s.t.products[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *productRepo) GetByProductIDForUpdate(ctx context.Context, productID string) (*product.LoanProduct, error) {
	return r.GetByProductID(ctx, productID)
}

func (r *productRepo) Save(_ context.Context, p *product.LoanProduct) error {
	for i := range r.s.t.products {
		if r.s.t.products[i].ID == p.ID {
			p.UpdatedAt = time.Now().UTC()
			r.s.t.products[i] = *p
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ---- signatories ----

type signRepo struct{ s *Store }

func (r *signRepo) Create(_ context.Context, sig *contract.Signatory) error {
	sig.ID = r.s.id()
	sig.CreatedAt = time.Now().UTC()
	r.s.t.signatories = append(r.s.t.signatories, *sig)
	return nil
}

func (r *signRepo) GetBySignatoryID(_ context.Context, signatoryID string) (*contract.Signatory, error) {
	for i := range r.s.t.signatories {
		if r.s.t.signatories[i].SignatoryID == signatoryID {
			cp := r.s.t.signatories[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *signRepo) ListByApplicationID(_ context.Context, appID uint64) ([]contract.Signatory, error) {
	var out []contract.Signatory
	for _, sig := range r.s.t.signatories {
		if sig.ApplicationID == appID {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (r *signRepo) Save(_ context.Context, sig *contract.Signatory) error {
	for i := range r.s.t.signatories {
		if r.s.t.signatories[i].ID == sig.ID {
			sig.UpdatedAt = time.Now().UTC()
			r.s.t.signatories[i] = *sig
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
