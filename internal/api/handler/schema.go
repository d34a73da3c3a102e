package handler

// ErrorResponse is the error envelope of every 4xx/5xx response. The
// central error handler in package api renders it.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// --- Portal ---

type registerRequest struct {
	Name              string `json:"name"                validate:"required"`
	Email             string `json:"email"               validate:"required,email"`
	Password          string `json:"password"            validate:"required,min=6"`
	Role              string `json:"role"                validate:"required"`
	ClassOrDepartment string `json:"class_or_department" validate:"max=120"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	ApprovalState     string `json:"approval_state"`
	ClassOrDepartment string `json:"class_or_department,omitempty"`
	ApprovedBy        string `json:"approved_by,omitempty"`
	ApproverName      string `json:"approver_name,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type registrationResponse struct {
	User             userResponse `json:"user"`
	RequiredApprover string       `json:"required_approver,omitempty"`
	Message          string       `json:"message"`
}

type loginResponse struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
	Message   string `json:"message"`
}

type approvalResponse struct {
	User    userResponse `json:"user"`
	Outcome string       `json:"outcome"`
	Message string       `json:"message"`
}

// approvalDeniedResponse is the 403 body of a denied approval; it still shows
// the unchanged target.
type approvalDeniedResponse struct {
	Error string       `json:"error"`
	User  userResponse `json:"user"`
}

type userUpdateRequest struct {
	Name              string `json:"name"                validate:"required"`
	Email             string `json:"email"               validate:"required,email"`
	ClassOrDepartment string `json:"class_or_department" validate:"max=120"`
}

type userPatchRequest struct {
	Name              *string `json:"name"                validate:"omitempty,min=1"`
	Email             *string `json:"email"               validate:"omitempty,email"`
	ClassOrDepartment *string `json:"class_or_department" validate:"omitempty,max=120"`
}

// --- Licensing ---

type accountRegisterRequest struct {
	Username  string `json:"username"   validate:"required,min=3,max=50"`
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=6"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type accountLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type accountAuthResponse struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
	Message   string `json:"message"`
}

type licenseRequest struct {
	LicenseKey    string `json:"license_key"    validate:"max=64"`
	ProductName   string `json:"product_name"   validate:"required"`
	CustomerName  string `json:"customer_name"  validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	IssueDate     string `json:"issue_date"     validate:"omitempty,date"`
	ExpiryDate    string `json:"expiry_date"    validate:"required,date"`
	Status        string `json:"status"`
	MaxUsers      *int   `json:"max_users"      validate:"omitempty,gte=0"`
	Description   string `json:"description"    validate:"max=1000"`
}

type licenseResponse struct {
	ID            string `json:"id"`
	LicenseKey    string `json:"license_key"`
	ProductName   string `json:"product_name"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	IssueDate     string `json:"issue_date"`
	ExpiryDate    string `json:"expiry_date"`
	Status        string `json:"status"`
	MaxUsers      *int   `json:"max_users,omitempty"`
	CurrentUsers  int    `json:"current_users"`
	Description   string `json:"description,omitempty"`
	CreatedBy     string `json:"created_by,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type generatedKeyResponse struct {
	LicenseKey string `json:"license_key"`
}

type messageResponse struct {
	Message string `json:"message"`
}
