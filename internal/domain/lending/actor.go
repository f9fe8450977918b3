package lending

type Role string

const (
	RoleEntrepreneur    Role = "entrepreneur"
	RoleCreditAnalyst   Role = "credit_analyst"
	RoleHeadOfCredit    Role = "head_of_credit"
	RoleCEO             Role = "ceo"
	RoleCommitteeMember Role = "committee_member"
	RoleOperations      Role = "operations"
	RoleAdmin           Role = "admin"
)

// Actor is the authenticated caller of a state-affecting operation. SubjectID
// is the opaque verified id from the identity provider; UserID is our internal
// 32-char hex id resolved from it.
type Actor struct {
	SubjectID string
	UserID    string
	Role      Role
	IPAddress string
	UserAgent string
}

// Staff reports whether the actor holds any back-office role.
func (a Actor) Staff() bool {
	return a.Role != RoleEntrepreneur && a.Role != ""
}
