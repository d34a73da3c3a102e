package ports

// Gated operations. Names are "<service>.<resource>.<action>"; the access
// policy maps each to its permitted roles.
const (
	OpUsersApprove = "portal.users.approve"
	OpUsersPending = "portal.users.pending"
	OpUsersRead    = "portal.users.read"
	OpUsersUpdate  = "portal.users.update"
	OpUsersDelete  = "portal.users.delete"

	OpLicensesCreate      = "licensing.licenses.create"
	OpLicensesList        = "licensing.licenses.list"
	OpLicensesRead        = "licensing.licenses.read"
	OpLicensesUpdate      = "licensing.licenses.update"
	OpLicensesStatus      = "licensing.licenses.status"
	OpLicensesSearch      = "licensing.licenses.search"
	OpLicensesExpired     = "licensing.licenses.expired"
	OpLicensesGenerateKey = "licensing.licenses.generate_key"
	OpLicensesDelete      = "licensing.licenses.delete"
)
