package signing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	appDomain "sme-lending-backend/internal/domain/application"
	auditDomain "sme-lending-backend/internal/domain/audit"
	contractDomain "sme-lending-backend/internal/domain/contract"
	"sme-lending-backend/internal/domain/lending"
	"sme-lending-backend/internal/testutil/memstore"
	"sme-lending-backend/pkg/id"
)

var (
	ops   = lending.Actor{SubjectID: "sub-ops", UserID: "user-ops", Role: lending.RoleOperations}
	owner = lending.Actor{SubjectID: "sub-owner", UserID: "entrepreneur-1", Role: lending.RoleEntrepreneur}
)

type fixture struct {
	st *memstore.Store
	uc *Usecase
	a  appDomain.LoanApplication
}

func newFixture(t *testing.T, status appDomain.Status, contractStatus appDomain.ContractStatus) *fixture {
	t.Helper()
	st := memstore.New()
	a := st.SeedApplication(appDomain.LoanApplication{
		ApplicationID:  id.NewID32(),
		DisplayID:      "LA-2026-000300",
		BusinessID:     "business-1",
		EntrepreneurID: owner.UserID,
		FundingAmount:  decimal.NewFromInt(100_000_000),
		Currency:       "IDR",
		Status:         status,
		ContractStatus: contractStatus,
	})
	return &fixture{st: st, uc: NewUsecase(st, memstore.NewCache()), a: a}
}

func (f *fixture) seedSignatory(party contractDomain.Party, order int) contractDomain.Signatory {
	return f.st.SeedSignatory(contractDomain.Signatory{
		SignatoryID:   id.NewID32(),
		ApplicationID: f.a.ID,
		Party:         party,
		Name:          string(party) + " signer",
		SigningOrder:  order,
	})
}

func (f *fixture) reload(t *testing.T) *appDomain.LoanApplication {
	t.Helper()
	a, err := f.st.Repos().Applications.GetByApplicationID(context.Background(), f.a.ApplicationID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	return a
}

func TestUploadContract(t *testing.T) {
	f := newFixture(t, appDomain.StatusDocumentGeneration, appDomain.ContractNone)
	ctx := context.Background()

	in := []SignatoryInput{
		{Party: contractDomain.PartyCompany, Name: "Lender Director", SigningOrder: 1},
		{Party: contractDomain.PartyClient, Name: "Borrower", SigningOrder: 2},
	}
	if err := f.uc.UploadContract(ctx, f.a.ApplicationID, in, true, ops); err != nil {
		t.Fatalf("UploadContract: %v", err)
	}

	a := f.reload(t)
	if a.ContractStatus != appDomain.ContractUploaded {
		t.Fatalf("contract status = %s, want contract_uploaded", a.ContractStatus)
	}
	if !a.EnforceSigningOrder {
		t.Fatal("enforce flag not stored")
	}
	sigs, err := f.st.Repos().Signatories.ListByApplicationID(ctx, a.ID)
	if err != nil {
		t.Fatalf("list signatories: %v", err)
	}
	if len(sigs) != 2 {
		t.Fatalf("signatories = %d, want 2", len(sigs))
	}
}

func TestUploadContract_Guards(t *testing.T) {
	ctx := context.Background()
	in := []SignatoryInput{{Party: contractDomain.PartyClient, Name: "Borrower"}}

	f := newFixture(t, appDomain.StatusCreditAnalysis, appDomain.ContractNone)
	if err := f.uc.UploadContract(ctx, f.a.ApplicationID, in, false, ops); !errors.Is(err, lending.ErrInvalidTransition) {
		t.Fatalf("wrong stage: err = %v, want ErrInvalidTransition", err)
	}

	f = newFixture(t, appDomain.StatusSigningExecution, appDomain.ContractInSigning)
	if err := f.uc.UploadContract(ctx, f.a.ApplicationID, in, false, ops); !errors.Is(err, lending.ErrInvalidTransition) {
		t.Fatalf("contract already in signing: err = %v, want ErrInvalidTransition", err)
	}

	f = newFixture(t, appDomain.StatusDocumentGeneration, appDomain.ContractNone)
	if err := f.uc.UploadContract(ctx, f.a.ApplicationID, in, false, owner); !errors.Is(err, lending.ErrForbidden) {
		t.Fatalf("entrepreneur: err = %v, want ErrForbidden", err)
	}
	if err := f.uc.UploadContract(ctx, f.a.ApplicationID, nil, false, ops); !errors.Is(err, lending.ErrValidation) {
		t.Fatalf("no signatories: err = %v, want ErrValidation", err)
	}
}

func TestSendForSigning(t *testing.T) {
	f := newFixture(t, appDomain.StatusSigningExecution, appDomain.ContractUploaded)
	ctx := context.Background()

	status, err := f.uc.SendForSigning(ctx, f.a.ApplicationID, ops)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if status != appDomain.ContractSentForSigning {
		t.Fatalf("status = %s, want contract_sent_for_signing", status)
	}

	// second call opens signing
	status, err = f.uc.SendForSigning(ctx, f.a.ApplicationID, ops)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if status != appDomain.ContractInSigning {
		t.Fatalf("status = %s, want contract_in_signing", status)
	}

	// and a third has nowhere to go
	if _, err := f.uc.SendForSigning(ctx, f.a.ApplicationID, ops); !errors.Is(err, lending.ErrInvalidTransition) {
		t.Fatalf("third send: err = %v, want ErrInvalidTransition", err)
	}
}

func TestAdvance_PartialThenFull(t *testing.T) {
	f := newFixture(t, appDomain.StatusSigningExecution, appDomain.ContractInSigning)
	company := f.seedSignatory(contractDomain.PartyCompany, 1)
	client := f.seedSignatory(contractDomain.PartyClient, 2)
	ctx := context.Background()
	now := time.Now().UTC()

	status, err := f.uc.Advance(ctx, f.a.ApplicationID, company.SignatoryID, now, ops)
	if err != nil {
		t.Fatalf("first signature: %v", err)
	}
	if status != appDomain.ContractPartiallySigned {
		t.Fatalf("status = %s, want contract_partially_signed", status)
	}
	if a := f.reload(t); a.Status != appDomain.StatusSigningExecution {
		t.Fatalf("application moved early: %s", a.Status)
	}

	status, err = f.uc.Advance(ctx, f.a.ApplicationID, client.SignatoryID, now, owner)
	if err != nil {
		t.Fatalf("last signature: %v", err)
	}
	if status != appDomain.ContractFullySigned {
		t.Fatalf("status = %s, want contract_fully_signed", status)
	}

	// the last signature pushes the application to awaiting_disbursement
	a := f.reload(t)
	if a.Status != appDomain.StatusAwaitingDisbursement {
		t.Fatalf("application status = %s, want awaiting_disbursement", a.Status)
	}
	events, err := f.st.Repos().Audits.ListByApplicationID(ctx, a.ID,
		auditDomain.Filter{EventTypes: []auditDomain.EventType{auditDomain.EventStatusChanged}})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("status_changed events = %d, want 1", len(events))
	}
	if events[0].PreviousStatus == nil || *events[0].PreviousStatus != string(appDomain.StatusSigningExecution) {
		t.Fatalf("previous status = %v, want signing_execution", events[0].PreviousStatus)
	}
}

func TestAdvance_Idempotent(t *testing.T) {
	f := newFixture(t, appDomain.StatusSigningExecution, appDomain.ContractInSigning)
	company := f.seedSignatory(contractDomain.PartyCompany, 1)
	f.seedSignatory(contractDomain.PartyClient, 2)
	ctx := context.Background()

	first := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	if _, err := f.uc.Advance(ctx, f.a.ApplicationID, company.SignatoryID, first, ops); err != nil {
		t.Fatalf("sign: %v", err)
	}
	status, err := f.uc.Advance(ctx, f.a.ApplicationID, company.SignatoryID, first.Add(time.Hour), ops)
	if err != nil {
		t.Fatalf("repeat sign: %v", err)
	}
	if status != appDomain.ContractPartiallySigned {
		t.Fatalf("status = %s, want contract_partially_signed", status)
	}

	s, err := f.st.Repos().Signatories.GetBySignatoryID(ctx, company.SignatoryID)
	if err != nil {
		t.Fatalf("get signatory: %v", err)
	}
	if s.SignedAt == nil || !s.SignedAt.Equal(first) {
		t.Fatalf("SignedAt = %v, want first timestamp %v", s.SignedAt, first)
	}
}

func TestAdvance_EnforcedOrder(t *testing.T) {
	f := newFixture(t, appDomain.StatusSigningExecution, appDomain.ContractInSigning)
	company := f.seedSignatory(contractDomain.PartyCompany, 1)
	client := f.seedSignatory(contractDomain.PartyClient, 2)

	// flip the flag on the stored application row
	ctx := context.Background()
	a := f.reload(t)
	a.EnforceSigningOrder = true
	if err := f.st.Repos().Applications.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := f.uc.Advance(ctx, f.a.ApplicationID, client.SignatoryID, time.Now().UTC(), owner)
	if !errors.Is(err, lending.ErrPreconditionFailed) {
		t.Fatalf("client before company: err = %v, want ErrPreconditionFailed", err)
	}

	if _, err := f.uc.Advance(ctx, f.a.ApplicationID, company.SignatoryID, time.Now().UTC(), ops); err != nil {
		t.Fatalf("company signs: %v", err)
	}
	status, err := f.uc.Advance(ctx, f.a.ApplicationID, client.SignatoryID, time.Now().UTC(), owner)
	if err != nil {
		t.Fatalf("client signs after company: %v", err)
	}
	if status != appDomain.ContractFullySigned {
		t.Fatalf("status = %s, want contract_fully_signed", status)
	}
}

func TestAdvance_Guards(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, appDomain.StatusCreditAnalysis, appDomain.ContractNone)
	s := f.seedSignatory(contractDomain.PartyClient, 1)
	if _, err := f.uc.Advance(ctx, f.a.ApplicationID, s.SignatoryID, time.Now().UTC(), ops); !errors.Is(err, lending.ErrInvalidTransition) {
		t.Fatalf("not in signing stage: err = %v, want ErrInvalidTransition", err)
	}

	f = newFixture(t, appDomain.StatusSigningExecution, appDomain.ContractUploaded)
	s = f.seedSignatory(contractDomain.PartyClient, 1)
	if _, err := f.uc.Advance(ctx, f.a.ApplicationID, s.SignatoryID, time.Now().UTC(), ops); !errors.Is(err, lending.ErrInvalidTransition) {
		t.Fatalf("contract not sent: err = %v, want ErrInvalidTransition", err)
	}

	f = newFixture(t, appDomain.StatusSigningExecution, appDomain.ContractInSigning)
	if _, err := f.uc.Advance(ctx, f.a.ApplicationID, id.NewID32(), time.Now().UTC(), ops); !errors.Is(err, lending.ErrNotFound) {
		t.Fatalf("unknown signatory: err = %v, want ErrNotFound", err)
	}

	// a signatory of another application must not resolve
	b := f.st.SeedApplication(appDomain.LoanApplication{
		ApplicationID:  id.NewID32(),
		DisplayID:      "LA-2026-000301",
		EntrepreneurID: "entrepreneur-2",
		Status:         appDomain.StatusSigningExecution,
		ContractStatus: appDomain.ContractInSigning,
	})
	foreign := f.st.SeedSignatory(contractDomain.Signatory{
		SignatoryID:   id.NewID32(),
		ApplicationID: b.ID,
		Party:         contractDomain.PartyClient,
		Name:          "other borrower",
	})
	if _, err := f.uc.Advance(ctx, f.a.ApplicationID, foreign.SignatoryID, time.Now().UTC(), ops); !errors.Is(err, lending.ErrNotFound) {
		t.Fatalf("foreign signatory: err = %v, want ErrNotFound", err)
	}
}

func TestVoidAndExpire(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, appDomain.StatusSigningExecution, appDomain.ContractPartiallySigned)
	status, err := f.uc.Void(ctx, f.a.ApplicationID, ops)
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if status != appDomain.ContractVoided {
		t.Fatalf("status = %s, want contract_voided", status)
	}

	f = newFixture(t, appDomain.StatusSigningExecution, appDomain.ContractSentForSigning)
	status, err = f.uc.Expire(ctx, f.a.ApplicationID, ops)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if status != appDomain.ContractExpired {
		t.Fatalf("status = %s, want contract_expired", status)
	}

	// a fully signed contract can no longer be voided
	f = newFixture(t, appDomain.StatusAwaitingDisbursement, appDomain.ContractFullySigned)
	if _, err := f.uc.Void(ctx, f.a.ApplicationID, ops); !errors.Is(err, lending.ErrInvalidTransition) {
		t.Fatalf("void fully signed: err = %v, want ErrInvalidTransition", err)
	}
}
