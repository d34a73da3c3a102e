package domain

import (
	"strings"
)

// Role is a portal role. New registrants of every role except the top
// administrative one wait for approval by the next role up the chain.
type Role string

const (
	RoleStudent      Role = "STUDENT"
	RoleClassTeacher Role = "CLASS_TEACHER"
	RoleHOD          Role = "HOD"
	RolePrincipal    Role = "PRINCIPAL"
	RoleAdmin        Role = "ADMIN"
)

// approvalChain is the role hierarchy: each entry names the role whose approval
// a new registrant of Role needs. An empty Approver means auto-approval.
// Adding a role is a change to this table only.
var approvalChain = []struct {
	Role     Role
	Approver Role
}{
	{RoleStudent, RoleClassTeacher},
	{RoleClassTeacher, RoleHOD},
	{RoleHOD, RolePrincipal},
	{RolePrincipal, RoleAdmin},
	{RoleAdmin, ""},
}

// collections maps the plural route segments used by the user endpoints to roles.
var collections = map[string]Role{
	"students":       RoleStudent,
	"class-teachers": RoleClassTeacher,
	"hods":           RoleHOD,
	"principals":     RolePrincipal,
	"admins":         RoleAdmin,
}

// Roles returns every portal role in hierarchy order, lowest first.
func Roles() []Role {
	out := make([]Role, 0, len(approvalChain))
	for _, e := range approvalChain {
		out = append(out, e.Role)
	}
	return out
}

// ParseRole accepts "CLASS_TEACHER", "class_teacher" or "class-teacher".
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// RoleForCollection resolves a plural route segment such as "hods".
func RoleForCollection(collection string) (Role, bool) {
	r, ok := collections[strings.ToLower(collection)]
	return r, ok
}

// Valid reports whether r is part of the hierarchy.
func (r Role) Valid() bool {
	for _, e := range approvalChain {
		if e.Role == r {
			return true
		}
	}
	return false
}

// Label renders the role for humans: lower-cased, underscores as spaces.
func (r Role) Label() string {
	return strings.ToLower(strings.ReplaceAll(string(r), "_", " "))
}

// RequiredApprover returns the role that must approve a new registrant of r.
// ok is false for the top administrative role and for unknown roles.
func RequiredApprover(r Role) (approver Role, ok bool) {
	for _, e := range approvalChain {
		if e.Role == r {
			return e.Approver, e.Approver != ""
		}
	}
	return "", false
}

// InitialApprovalState is APPROVED only for roles without a required approver.
func InitialApprovalState(r Role) ApprovalState {
	if _, ok := RequiredApprover(r); ok {
		return ApprovalPending
	}
	return ApprovalApproved
}

// CanApprove evaluates the approval permission rule: an ADMIN approver may
// approve anyone, otherwise the approver must hold the target's required
// approver role.
func CanApprove(target, approver Role) bool {
	if approver == RoleAdmin {
		return true
	}
	required, ok := RequiredApprover(target)
	return ok && required == approver
}

// ApprovableBy lists the target roles an approver of role r may approve.
func ApprovableBy(r Role) []Role {
	var out []Role
	for _, e := range approvalChain {
		if CanApprove(e.Role, r) {
			out = append(out, e.Role)
		}
	}
	return out
}
