package pipeline

import (
	appDomain "sme-lending-backend/internal/domain/application"
	"sme-lending-backend/internal/domain/lending"
)

// transitions is the full status graph. Anything not listed here is an
// invalid transition.
var transitions = map[appDomain.Status][]appDomain.Status{
	appDomain.StatusKYCKYBVerification:  {appDomain.StatusEligibilityCheck, appDomain.StatusRejected, appDomain.StatusCancelled},
	appDomain.StatusEligibilityCheck:    {appDomain.StatusCreditAnalysis, appDomain.StatusRejected, appDomain.StatusCancelled},
	appDomain.StatusCreditAnalysis:      {appDomain.StatusHeadOfCreditReview, appDomain.StatusRejected, appDomain.StatusCancelled},
	appDomain.StatusHeadOfCreditReview:  {appDomain.StatusInternalApprovalCEO, appDomain.StatusRejected, appDomain.StatusCancelled},
	appDomain.StatusInternalApprovalCEO: {appDomain.StatusCommitteeDecision, appDomain.StatusRejected, appDomain.StatusCancelled},
	appDomain.StatusCommitteeDecision:   {appDomain.StatusSMEOfferApproval, appDomain.StatusRejected, appDomain.StatusCancelled},
	appDomain.StatusSMEOfferApproval:    {appDomain.StatusDocumentGeneration, appDomain.StatusRejected, appDomain.StatusCancelled},
	appDomain.StatusDocumentGeneration:  {appDomain.StatusSigningExecution, appDomain.StatusRejected, appDomain.StatusCancelled},
	appDomain.StatusSigningExecution:    {appDomain.StatusAwaitingDisbursement, appDomain.StatusRejected, appDomain.StatusCancelled},
	// approved is an optional explicit milestone before disbursement
	appDomain.StatusAwaitingDisbursement: {appDomain.StatusApproved, appDomain.StatusDisbursed, appDomain.StatusCancelled},
	appDomain.StatusApproved:             {appDomain.StatusDisbursed, appDomain.StatusCancelled},
	// terminal states have no outgoing edges
	appDomain.StatusRejected:  {},
	appDomain.StatusCancelled: {},
	appDomain.StatusDisbursed: {},
}

func canTransition(from, to appDomain.Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// stageRoles lists the staff roles allowed to drive a transition out of each
// stage. Entrepreneurs are handled separately: they may only cancel their own
// application.
var stageRoles = map[appDomain.Status][]lending.Role{
	appDomain.StatusKYCKYBVerification:   {lending.RoleOperations, lending.RoleAdmin},
	appDomain.StatusEligibilityCheck:     {lending.RoleOperations, lending.RoleCreditAnalyst, lending.RoleAdmin},
	appDomain.StatusCreditAnalysis:       {lending.RoleCreditAnalyst, lending.RoleAdmin},
	appDomain.StatusHeadOfCreditReview:   {lending.RoleHeadOfCredit, lending.RoleAdmin},
	appDomain.StatusInternalApprovalCEO:  {lending.RoleCEO, lending.RoleAdmin},
	appDomain.StatusCommitteeDecision:    {lending.RoleCommitteeMember, lending.RoleAdmin},
	appDomain.StatusSMEOfferApproval:     {lending.RoleOperations, lending.RoleAdmin},
	appDomain.StatusDocumentGeneration:   {lending.RoleOperations, lending.RoleAdmin},
	appDomain.StatusSigningExecution:     {lending.RoleOperations, lending.RoleAdmin},
	appDomain.StatusAwaitingDisbursement: {lending.RoleOperations, lending.RoleAdmin},
	appDomain.StatusApproved:             {lending.RoleOperations, lending.RoleAdmin},
}

func roleAllowed(from appDomain.Status, role lending.Role) bool {
	for _, r := range stageRoles[from] {
		if r == role {
			return true
		}
	}
	return false
}

// commentRequired: a review comment is mandatory to leave these stages on the
// forward edge.
var commentRequired = map[appDomain.Status]bool{
	appDomain.StatusCreditAnalysis:      true,
	appDomain.StatusHeadOfCreditReview:  true,
	appDomain.StatusInternalApprovalCEO: true,
}

// documentGated: exiting these stages forward requires every registered
// document verification to be approved.
var documentGated = map[appDomain.Status]bool{
	appDomain.StatusKYCKYBVerification: true,
	appDomain.StatusEligibilityCheck:   true,
}
