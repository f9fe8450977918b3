package docgate

import (
	"context"
	"errors"

	docDomain "sme-lending-backend/internal/domain/document"

	"gorm.io/gorm"
)

// GateResult lists the document references still blocking a stage exit.
type GateResult struct {
	Outstanding []docDomain.Ref `json:"outstanding"`
}

func (g GateResult) Satisfied() bool { return len(g.Outstanding) == 0 }

// CheckAll evaluates every verification registered to the application.
// Fail-closed: a pending or rejected row counts as outstanding. Zero
// registered rows means nothing is expected yet and the gate passes.
func CheckAll(ctx context.Context, docs docDomain.Repository, appID uint64) (GateResult, error) {
	rows, err := docs.ListVerificationsByApplicationID(ctx, appID)
	if err != nil {
		return GateResult{}, err
	}
	var out GateResult
	for _, v := range rows {
		if v.Outcome != docDomain.OutcomeApproved {
			out.Outstanding = append(out.Outstanding, docDomain.Ref{Type: v.DocumentType, DocumentID: v.DocumentID})
		}
	}
	return out, nil
}

// RequireVerified checks an explicit set of expected refs. A ref with no
// verification row at all is outstanding.
func RequireVerified(ctx context.Context, docs docDomain.Repository, appID uint64, refs []docDomain.Ref) (GateResult, error) {
	var out GateResult
	for _, ref := range refs {
		v, err := docs.GetVerification(ctx, appID, ref)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				out.Outstanding = append(out.Outstanding, ref)
				continue
			}
			return GateResult{}, err
		}
		if v.Outcome != docDomain.OutcomeApproved {
			out.Outstanding = append(out.Outstanding, ref)
		}
	}
	return out, nil
}
