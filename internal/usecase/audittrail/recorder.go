package audittrail

import (
	"context"
	"fmt"

	appDomain "sme-lending-backend/internal/domain/application"
	auditDomain "sme-lending-backend/internal/domain/audit"
	"sme-lending-backend/internal/domain/lending"
)

// Record appends one event through the repository bound to the caller's
// transaction. Every state-affecting usecase calls this as its last
// transactional step so the trail can never drift from the entity.
func Record(ctx context.Context, audits auditDomain.Repository, e *auditDomain.AuditEvent) error {
	return audits.Create(ctx, e)
}

func actorID(a lending.Actor) *string {
	if a.UserID == "" {
		return nil
	}
	uid := a.UserID
	return &uid
}

func withActor(e *auditDomain.AuditEvent, a lending.Actor) *auditDomain.AuditEvent {
	e.ActorID = actorID(a)
	e.IPAddress = a.IPAddress
	e.UserAgent = a.UserAgent
	return e
}

// Submitted describes the creation of an application in its first stage.
func Submitted(app *appDomain.LoanApplication, actor lending.Actor) *auditDomain.AuditEvent {
	return withActor(&auditDomain.AuditEvent{
		ApplicationID: app.ID,
		EventType:     auditDomain.EventSubmitted,
		Title:         "Application submitted",
		Description:   fmt.Sprintf("Loan application %s submitted", app.DisplayID),
		Status:        string(app.Status),
		Details: map[string]any{
			"display_id":     app.DisplayID,
			"funding_amount": app.FundingAmount.String(),
			"currency":       app.Currency,
		},
	}, actor)
}

// StatusChanged describes one committed edge of the status graph.
func StatusChanged(app *appDomain.LoanApplication, actor lending.Actor, prev, next appDomain.Status, details map[string]any) *auditDomain.AuditEvent {
	p, n := string(prev), string(next)
	return withActor(&auditDomain.AuditEvent{
		ApplicationID:  app.ID,
		EventType:      auditDomain.EventStatusChanged,
		Title:          fmt.Sprintf("Status changed to %s", next),
		Status:         n,
		PreviousStatus: &p,
		NewStatus:      &n,
		Details:        details,
	}, actor)
}

func DocumentOutcome(appID uint64, actor lending.Actor, status string, approved bool, details map[string]any) *auditDomain.AuditEvent {
	et := auditDomain.EventDocumentVerified
	title := "Document approved"
	if !approved {
		et = auditDomain.EventDocumentRejected
		title = "Document rejected"
	}
	return withActor(&auditDomain.AuditEvent{
		ApplicationID: appID,
		EventType:     et,
		Title:         title,
		Status:        status,
		Details:       details,
	}, actor)
}

func CounterOfferCreated(appID uint64, actor lending.Actor, status, versionID string) *auditDomain.AuditEvent {
	return withActor(&auditDomain.AuditEvent{
		ApplicationID: appID,
		EventType:     auditDomain.EventCounterOfferCreated,
		Title:         "Counter-offer proposed",
		Status:        status,
		Details:       map[string]any{"version_id": versionID},
	}, actor)
}

func VersionActivated(appID uint64, actor lending.Actor, status, versionID string) *auditDomain.AuditEvent {
	return withActor(&auditDomain.AuditEvent{
		ApplicationID: appID,
		EventType:     auditDomain.EventVersionActivated,
		Title:         "Term version activated",
		Status:        status,
		Details:       map[string]any{"version_id": versionID},
	}, actor)
}

func ContractUpdated(appID uint64, actor lending.Actor, status string, contractStatus appDomain.ContractStatus) *auditDomain.AuditEvent {
	return withActor(&auditDomain.AuditEvent{
		ApplicationID: appID,
		EventType:     auditDomain.EventContractUpdated,
		Title:         fmt.Sprintf("Contract moved to %s", contractStatus),
		Status:        status,
		Details:       map[string]any{"contract_status": string(contractStatus)},
	}, actor)
}

func SignatureRecorded(appID uint64, actor lending.Actor, status, signatoryID string, contractStatus appDomain.ContractStatus) *auditDomain.AuditEvent {
	return withActor(&auditDomain.AuditEvent{
		ApplicationID: appID,
		EventType:     auditDomain.EventSignatureRecorded,
		Title:         "Signature recorded",
		Status:        status,
		Details: map[string]any{
			"signatory_id":    signatoryID,
			"contract_status": string(contractStatus),
		},
	}, actor)
}
