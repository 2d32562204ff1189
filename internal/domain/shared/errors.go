package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	EntityID string `json:"entity_id,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithEntity returns a copy of the error carrying the offending entity id
func (e *DomainError) WithEntity(id string) *DomainError {
	return &DomainError{
		Code:     e.Code,
		Message:  e.Message,
		EntityID: id,
	}
}

// Error codes used across the domain
const (
	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyExists    = "ALREADY_EXISTS"
	CodeDuplicateClosing = "DUPLICATE_CLOSING"
	CodePolicyViolation  = "POLICY_VIOLATION"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeConsistencyError = "CONSISTENCY_ERROR"
	CodeInvalidState     = "INVALID_STATE"
)

// Common domain errors
var (
	ErrNotFound      = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidState  = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

// NewNotFoundError creates a NOT_FOUND error for a specific entity
func NewNotFoundError(message, entityID string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: message, EntityID: entityID}
}

// NewDuplicateClosingError creates a DUPLICATE_CLOSING error. Sealing the same
// (account, year, month) twice is rejected; the store's uniqueness constraint
// is the authoritative guard under concurrency.
func NewDuplicateClosingError(message, entityID string) *DomainError {
	return &DomainError{Code: CodeDuplicateClosing, Message: message, EntityID: entityID}
}

// NewPolicyViolationError creates a POLICY_VIOLATION error carrying the reason
// a closing was disallowed.
func NewPolicyViolationError(reason string) *DomainError {
	return &DomainError{Code: CodePolicyViolation, Message: reason}
}

// NewValidationError creates a VALIDATION_ERROR. Validation failures are
// rejected before any write, so they never leave partial state behind.
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: CodeValidationError, Message: message}
}

// NewConsistencyError creates a CONSISTENCY_ERROR. Raised when an operation
// observes an entity whose tenant id does not match the bound tenant context;
// callers must treat it as fatal and never silently proceed.
func NewConsistencyError(message, entityID string) *DomainError {
	return &DomainError{Code: CodeConsistencyError, Message: message, EntityID: entityID}
}

// IsCode reports whether err is a DomainError with the given code
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	de, ok := err.(*DomainError)
	return ok && de.Code == code
}
