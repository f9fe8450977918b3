package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	appDomain "sme-lending-backend/internal/domain/application"
	auditDomain "sme-lending-backend/internal/domain/audit"
	docDomain "sme-lending-backend/internal/domain/document"
	"sme-lending-backend/internal/domain/lending"
	productDomain "sme-lending-backend/internal/domain/product"
	versionDomain "sme-lending-backend/internal/domain/version"
	"sme-lending-backend/internal/infrastructure/cache"
	"sme-lending-backend/internal/testutil/memstore"
	"sme-lending-backend/pkg/id"
)

var (
	ownerActor     = lending.Actor{SubjectID: "sub-owner", UserID: "entrepreneur-1", Role: lending.RoleEntrepreneur}
	opsActor       = lending.Actor{SubjectID: "sub-ops", UserID: "user-ops", Role: lending.RoleOperations}
	analystActor   = lending.Actor{SubjectID: "sub-ca", UserID: "user-ca", Role: lending.RoleCreditAnalyst}
	hocActor       = lending.Actor{SubjectID: "sub-hoc", UserID: "user-hoc", Role: lending.RoleHeadOfCredit}
	ceoActor       = lending.Actor{SubjectID: "sub-ceo", UserID: "user-ceo", Role: lending.RoleCEO}
	committeeActor = lending.Actor{SubjectID: "sub-cm", UserID: "user-cm", Role: lending.RoleCommitteeMember}
)

type env struct {
	st    *memstore.Store
	cache *memstore.Cache
	note  *memstore.Dispatcher
	uc    *Usecase
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	c := memstore.NewCache()
	d := &memstore.Dispatcher{}
	repos := st.Repos()
	return &env{
		st:    st,
		cache: c,
		note:  d,
		uc:    NewUsecase(st, repos.Applications, repos.Versions, c, d, time.Minute),
	}
}

func seedActiveProduct(e *env) productDomain.LoanProduct {
	return e.st.SeedProduct(productDomain.LoanProduct{
		ProductID:          id.NewID32(),
		OrganizationID:     id.NewID32(),
		Name:               "Working Capital",
		Currency:           "IDR",
		MinAmount:          decimal.NewFromInt(10_000_000),
		MaxAmount:          decimal.NewFromInt(500_000_000),
		MinTermMonths:      3,
		MaxTermMonths:      36,
		InterestRate:       decimal.RequireFromString("0.24"),
		RatePeriod:         "yearly",
		AmortizationMethod: "annuity",
		RepaymentFrequency: "monthly",
		Status:             productDomain.StatusActive,
		Version:            1,
	})
}

func submit(t *testing.T, e *env, p productDomain.LoanProduct) *ApplicationDTO {
	t.Helper()
	dto, err := e.uc.Submit(context.Background(), SubmitInput{
		BusinessID:            "business-1",
		EntrepreneurID:        ownerActor.UserID,
		ProductID:             p.ProductID,
		FundingAmount:         decimal.NewFromInt(100_000_000),
		Currency:              "IDR",
		RepaymentPeriodMonths: 12,
	}, ownerActor)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return dto
}

// advanceTo walks the forward pipeline with the role required at each stage,
// stopping once the application reaches target.
func advanceTo(t *testing.T, e *env, appID string, target appDomain.Status) {
	t.Helper()
	plan := []struct {
		to    appDomain.Status
		actor lending.Actor
		in    TransitionInput
	}{
		{appDomain.StatusEligibilityCheck, opsActor, TransitionInput{}},
		{appDomain.StatusCreditAnalysis, opsActor, TransitionInput{}},
		{appDomain.StatusHeadOfCreditReview, analystActor, TransitionInput{Comment: "cashflow supports the request"}},
		{appDomain.StatusInternalApprovalCEO, hocActor, TransitionInput{Comment: "within portfolio limits"}},
		{appDomain.StatusCommitteeDecision, ceoActor, TransitionInput{Comment: "approved for committee"}},
		{appDomain.StatusSMEOfferApproval, committeeActor, TransitionInput{TermSheetURL: "https://docs.example.com/ts.pdf"}},
		{appDomain.StatusDocumentGeneration, opsActor, TransitionInput{}},
		{appDomain.StatusSigningExecution, opsActor, TransitionInput{}},
	}
	for _, step := range plan {
		step.in.Requested = step.to
		if _, err := e.uc.Transition(context.Background(), appID, step.in, step.actor); err != nil {
			t.Fatalf("advance to %s: %v", step.to, err)
		}
		if step.to == target {
			return
		}
	}
	if target != appDomain.StatusSigningExecution {
		t.Fatalf("advanceTo: unreachable target %s", target)
	}
}

func reload(t *testing.T, e *env, appID string) *appDomain.LoanApplication {
	t.Helper()
	a, err := e.st.Repos().Applications.GetByApplicationID(context.Background(), appID)
	if err != nil {
		t.Fatalf("reload %s: %v", appID, err)
	}
	return a
}

func TestSubmit_FreezesOriginalVersion(t *testing.T) {
	e := newEnv(t)
	p := seedActiveProduct(e)

	dto := submit(t, e, p)

	if dto.Status != string(appDomain.StatusKYCKYBVerification) {
		t.Fatalf("status = %s, want kyc_kyb_verification", dto.Status)
	}
	if dto.SubmittedAt == nil {
		t.Fatal("SubmittedAt not set")
	}
	if dto.ActiveVersion == nil {
		t.Fatal("no active version on submit")
	}
	if dto.ActiveVersion.Kind != string(versionDomain.KindOriginal) {
		t.Fatalf("version kind = %s, want original", dto.ActiveVersion.Kind)
	}
	if !dto.ActiveVersion.InterestRate.Equal(p.InterestRate) {
		t.Fatalf("frozen rate = %s, want product rate %s", dto.ActiveVersion.InterestRate, p.InterestRate)
	}

	a := reload(t, e, dto.ApplicationID)
	if got := e.st.AuditCount(a.ID); got != 1 {
		t.Fatalf("audit events = %d, want 1", got)
	}
	if len(e.note.Sent) != 1 || e.note.Sent[0].Template != "application_submitted" {
		t.Fatalf("notifications = %+v, want one application_submitted", e.note.Sent)
	}
}

func TestSubmit_Validation(t *testing.T) {
	e := newEnv(t)
	p := seedActiveProduct(e)
	draft := e.st.SeedProduct(productDomain.LoanProduct{
		ProductID: id.NewID32(), OrganizationID: p.OrganizationID, Name: "Draft",
		Currency: "IDR", MinAmount: decimal.NewFromInt(1), MaxAmount: decimal.NewFromInt(2),
		MinTermMonths: 1, MaxTermMonths: 2, Status: productDomain.StatusDraft,
	})

	base := SubmitInput{
		BusinessID:            "business-1",
		EntrepreneurID:        ownerActor.UserID,
		ProductID:             p.ProductID,
		FundingAmount:         decimal.NewFromInt(100_000_000),
		Currency:              "IDR",
		RepaymentPeriodMonths: 12,
	}

	tests := []struct {
		name    string
		mutate  func(*SubmitInput)
		actor   lending.Actor
		wantErr error
	}{
		{
			name:    "unknown product",
			mutate:  func(in *SubmitInput) { in.ProductID = id.NewID32() },
			actor:   ownerActor,
			wantErr: lending.ErrNotFound,
		},
		{
			name:    "inactive product",
			mutate:  func(in *SubmitInput) { in.ProductID = draft.ProductID },
			actor:   ownerActor,
			wantErr: lending.ErrValidation,
		},
		{
			name:    "currency mismatch",
			mutate:  func(in *SubmitInput) { in.Currency = "USD" },
			actor:   ownerActor,
			wantErr: lending.ErrValidation,
		},
		{
			name:    "amount below product minimum",
			mutate:  func(in *SubmitInput) { in.FundingAmount = decimal.NewFromInt(1_000_000) },
			actor:   ownerActor,
			wantErr: lending.ErrValidation,
		},
		{
			name:    "term above product maximum",
			mutate:  func(in *SubmitInput) { in.RepaymentPeriodMonths = 48 },
			actor:   ownerActor,
			wantErr: lending.ErrValidation,
		},
		{
			name:    "entrepreneur submitting for someone else",
			mutate:  func(in *SubmitInput) { in.EntrepreneurID = "someone-else" },
			actor:   ownerActor,
			wantErr: lending.ErrForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			if _, err := e.uc.Submit(context.Background(), in, tc.actor); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestTransition_InvalidEdgeLeavesStateUnchanged(t *testing.T) {
	e := newEnv(t)
	dto := submit(t, e, seedActiveProduct(e))
	before := reload(t, e, dto.ApplicationID)

	_, err := e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusCreditAnalysis}, opsActor)
	if !errors.Is(err, lending.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	after := reload(t, e, dto.ApplicationID)
	if after.Status != before.Status {
		t.Fatalf("status changed to %s on a rejected transition", after.Status)
	}
	if got := e.st.AuditCount(after.ID); got != 1 {
		t.Fatalf("audit events = %d, want 1 (no event for a failed transition)", got)
	}
}

func TestTransition_TerminalIsFinal(t *testing.T) {
	e := newEnv(t)
	dto := submit(t, e, seedActiveProduct(e))

	if _, err := e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusCancelled}, ownerActor); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	for _, next := range []appDomain.Status{
		appDomain.StatusEligibilityCheck,
		appDomain.StatusRejected,
		appDomain.StatusCancelled,
	} {
		_, err := e.uc.Transition(context.Background(), dto.ApplicationID,
			TransitionInput{Requested: next, Reason: "x"}, opsActor)
		if !errors.Is(err, lending.ErrInvalidTransition) {
			t.Fatalf("transition %s out of cancelled: err = %v, want ErrInvalidTransition", next, err)
		}
	}

	a := reload(t, e, dto.ApplicationID)
	if a.CancelledAt == nil {
		t.Fatal("CancelledAt not set")
	}
}

func TestTransition_RoleGates(t *testing.T) {
	e := newEnv(t)
	dto := submit(t, e, seedActiveProduct(e))

	// entrepreneurs may not drive the pipeline forward
	_, err := e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusEligibilityCheck}, ownerActor)
	if !errors.Is(err, lending.ErrForbidden) {
		t.Fatalf("entrepreneur forward: err = %v, want ErrForbidden", err)
	}

	// a credit analyst has no business in kyc_kyb_verification
	_, err = e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusEligibilityCheck}, analystActor)
	if !errors.Is(err, lending.ErrForbidden) {
		t.Fatalf("analyst on kyc stage: err = %v, want ErrForbidden", err)
	}

	// only the owner may cancel as an entrepreneur
	stranger := lending.Actor{SubjectID: "sub-x", UserID: "entrepreneur-2", Role: lending.RoleEntrepreneur}
	_, err = e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusCancelled}, stranger)
	if !errors.Is(err, lending.ErrForbidden) {
		t.Fatalf("stranger cancel: err = %v, want ErrForbidden", err)
	}
}

func TestTransition_CommentRequired(t *testing.T) {
	e := newEnv(t)
	dto := submit(t, e, seedActiveProduct(e))
	advanceTo(t, e, dto.ApplicationID, appDomain.StatusCreditAnalysis)

	_, err := e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusHeadOfCreditReview}, analystActor)
	if !errors.Is(err, lending.ErrPreconditionFailed) {
		t.Fatalf("no comment: err = %v, want ErrPreconditionFailed", err)
	}
	if a := reload(t, e, dto.ApplicationID); a.Status != appDomain.StatusCreditAnalysis {
		t.Fatalf("status = %s after failed precondition", a.Status)
	}

	out, err := e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusHeadOfCreditReview, Comment: "solid financials"}, analystActor)
	if err != nil {
		t.Fatalf("with comment: %v", err)
	}
	if out.Status != string(appDomain.StatusHeadOfCreditReview) {
		t.Fatalf("status = %s, want head_of_credit_review", out.Status)
	}

	a := reload(t, e, dto.ApplicationID)
	if a.CreditAnalysis.Comment != "solid financials" || a.CreditAnalysis.CompletedAt == nil {
		t.Fatalf("stage completion not recorded: %+v", a.CreditAnalysis)
	}
	if a.CreditAnalysis.CompletedBy != analystActor.UserID {
		t.Fatalf("CompletedBy = %s, want %s", a.CreditAnalysis.CompletedBy, analystActor.UserID)
	}
}

func TestTransition_TermSheetRequired(t *testing.T) {
	e := newEnv(t)
	dto := submit(t, e, seedActiveProduct(e))
	advanceTo(t, e, dto.ApplicationID, appDomain.StatusCommitteeDecision)

	_, err := e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusSMEOfferApproval}, committeeActor)
	if !errors.Is(err, lending.ErrPreconditionFailed) {
		t.Fatalf("no term sheet: err = %v, want ErrPreconditionFailed", err)
	}

	_, err = e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusSMEOfferApproval, TermSheetURL: "https://docs.example.com/ts.pdf"}, committeeActor)
	if err != nil {
		t.Fatalf("with term sheet: %v", err)
	}
	if a := reload(t, e, dto.ApplicationID); a.TermSheetURL == "" {
		t.Fatal("term sheet url not stored")
	}
}

func TestTransition_DocumentGate(t *testing.T) {
	e := newEnv(t)
	dto := submit(t, e, seedActiveProduct(e))
	advanceTo(t, e, dto.ApplicationID, appDomain.StatusEligibilityCheck)

	ctx := context.Background()
	a := reload(t, e, dto.ApplicationID)
	docs := e.st.Repos().Documents
	v := &docDomain.Verification{
		ApplicationID: a.ID,
		DocumentType:  docDomain.TypeBusiness,
		DocumentID:    id.NewID32(),
		Outcome:       docDomain.OutcomePending,
	}
	if err := docs.CreateVerification(ctx, v); err != nil {
		t.Fatalf("seed verification: %v", err)
	}
	auditsBefore := e.st.AuditCount(a.ID)

	_, err := e.uc.Transition(ctx, dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusCreditAnalysis}, opsActor)
	if !errors.Is(err, lending.ErrPreconditionFailed) {
		t.Fatalf("pending document: err = %v, want ErrPreconditionFailed", err)
	}
	if got := e.st.AuditCount(a.ID); got != auditsBefore {
		t.Fatalf("audit events = %d after failed gate, want %d", got, auditsBefore)
	}

	v.Outcome = docDomain.OutcomeApproved
	if err := docs.SaveVerification(ctx, v); err != nil {
		t.Fatalf("approve verification: %v", err)
	}
	if _, err := e.uc.Transition(ctx, dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusCreditAnalysis}, opsActor); err != nil {
		t.Fatalf("after approval: %v", err)
	}

	// exactly one new event, carrying both sides of the edge
	events, err := e.st.Repos().Audits.ListByApplicationID(ctx, a.ID, auditDomain.Filter{})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(events) != auditsBefore+1 {
		t.Fatalf("audit events = %d, want %d", len(events), auditsBefore+1)
	}
	last := events[len(events)-1]
	if last.EventType != auditDomain.EventStatusChanged {
		t.Fatalf("event type = %s, want status_changed", last.EventType)
	}
	if last.PreviousStatus == nil || *last.PreviousStatus != string(appDomain.StatusEligibilityCheck) {
		t.Fatalf("previous status = %v, want eligibility_check", last.PreviousStatus)
	}
	if last.NewStatus == nil || *last.NewStatus != string(appDomain.StatusCreditAnalysis) {
		t.Fatalf("new status = %v, want credit_analysis", last.NewStatus)
	}
}

func TestTransition_RejectRequiresReason(t *testing.T) {
	e := newEnv(t)
	dto := submit(t, e, seedActiveProduct(e))

	_, err := e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusRejected}, opsActor)
	if !errors.Is(err, lending.ErrPreconditionFailed) {
		t.Fatalf("no reason: err = %v, want ErrPreconditionFailed", err)
	}

	out, err := e.uc.Transition(context.Background(), dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusRejected, Reason: "incomplete registry extract"}, opsActor)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if out.RejectedAt == nil || out.RejectionReason != "incomplete registry extract" {
		t.Fatalf("rejection not recorded: %+v", out)
	}
}

func TestTransition_ContractMustBeFullySigned(t *testing.T) {
	e := newEnv(t)
	a := e.st.SeedApplication(appDomain.LoanApplication{
		ApplicationID:  id.NewID32(),
		DisplayID:      "LA-2026-000042",
		BusinessID:     "business-1",
		EntrepreneurID: ownerActor.UserID,
		FundingAmount:  decimal.NewFromInt(50_000_000),
		Currency:       "IDR",
		Status:         appDomain.StatusSigningExecution,
		ContractStatus: appDomain.ContractPartiallySigned,
	})

	_, err := e.uc.Transition(context.Background(), a.ApplicationID,
		TransitionInput{Requested: appDomain.StatusAwaitingDisbursement}, opsActor)
	if !errors.Is(err, lending.ErrPreconditionFailed) {
		t.Fatalf("partially signed: err = %v, want ErrPreconditionFailed", err)
	}
}

func TestTransition_TimelineSetOnce(t *testing.T) {
	e := newEnv(t)
	a := e.st.SeedApplication(appDomain.LoanApplication{
		ApplicationID:  id.NewID32(),
		DisplayID:      "LA-2026-000043",
		BusinessID:     "business-1",
		EntrepreneurID: ownerActor.UserID,
		FundingAmount:  decimal.NewFromInt(50_000_000),
		Currency:       "IDR",
		Status:         appDomain.StatusAwaitingDisbursement,
	})

	out, err := e.uc.Transition(context.Background(), a.ApplicationID,
		TransitionInput{Requested: appDomain.StatusApproved}, opsActor)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	approvedAt := out.ApprovedAt
	if approvedAt == nil {
		t.Fatal("ApprovedAt not set")
	}

	out, err = e.uc.Transition(context.Background(), a.ApplicationID,
		TransitionInput{Requested: appDomain.StatusDisbursed}, opsActor)
	if err != nil {
		t.Fatalf("disburse: %v", err)
	}
	if out.DisbursedAt == nil {
		t.Fatal("DisbursedAt not set")
	}
	if !out.ApprovedAt.Equal(*approvedAt) {
		t.Fatalf("ApprovedAt overwritten: %v -> %v", approvedAt, out.ApprovedAt)
	}
}

func TestGet_ReadThroughCache(t *testing.T) {
	e := newEnv(t)
	dto := submit(t, e, seedActiveProduct(e))
	ctx := context.Background()

	key := cache.ApplicationKey(dto.ApplicationID)
	e.cache.Invalidated = nil

	got, err := e.uc.Get(ctx, dto.ApplicationID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ApplicationID != dto.ApplicationID {
		t.Fatalf("got %s, want %s", got.ApplicationID, dto.ApplicationID)
	}
	if !e.cache.Has(key) {
		t.Fatal("DTO not cached after read")
	}

	// a state change invalidates the cached entry
	if _, err := e.uc.Transition(ctx, dto.ApplicationID,
		TransitionInput{Requested: appDomain.StatusEligibilityCheck}, opsActor); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if e.cache.Has(key) {
		t.Fatal("cache entry survived a state change")
	}

	got, err = e.uc.Get(ctx, dto.ApplicationID)
	if err != nil {
		t.Fatalf("Get after transition: %v", err)
	}
	if got.Status != string(appDomain.StatusEligibilityCheck) {
		t.Fatalf("stale read: status = %s", got.Status)
	}
}

func TestGet_NotFound(t *testing.T) {
	e := newEnv(t)
	if _, err := e.uc.Get(context.Background(), id.NewID32()); !errors.Is(err, lending.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
