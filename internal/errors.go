package internal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the failure kinds surfaced by the client
type ErrorType int

const (
	ErrClientConstruction ErrorType = iota
	ErrNetworkRequest
	ErrHTTPStatus
	ErrResponseNotText
	ErrMissingContainer
	ErrMissingNode
	ErrMissingChildren
	ErrMissingAttribute
	ErrInvalidEncoding
	ErrUnparsableURL
	ErrMissingLabel
	ErrInvalidSlug
	ErrCredentialMissing
	ErrFileRead
	ErrAuthRejected
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// CatboxError carries one failure kind plus whatever context identifies where it happened
type CatboxError struct {
	Type       ErrorType              `json:"type"`
	Severity   ErrorSeverity          `json:"severity"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code,omitempty"`
	Endpoint   string                 `json:"endpoint,omitempty"`
	Path       string                 `json:"path,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *CatboxError) Error() string {
	var b strings.Builder

	b.WriteString(e.Type.String())
	switch {
	case e.StatusCode != 0:
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	case e.Endpoint != "":
		fmt.Fprintf(&b, " (%s)", redactSensitiveURL(e.Endpoint))
	case e.Path != "":
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap exposes the underlying cause
func (e *CatboxError) Unwrap() error {
	return e.Err
}

// DetailedError returns a detailed error message with all available information
func (e *CatboxError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s Error", e.Severity.String(), e.Type.String()))

	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("Status: %d", e.StatusCode))
	}
	if e.Message != "" {
		parts = append(parts, fmt.Sprintf("Message: %s", e.Message))
	}
	if e.Endpoint != "" {
		parts = append(parts, fmt.Sprintf("Endpoint: %s", redactSensitiveURL(e.Endpoint)))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("Path: %s", e.Path))
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", e.Err))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrClientConstruction:
		return "ClientConstructionFailed"
	case ErrNetworkRequest:
		return "NetworkRequestFailed"
	case ErrHTTPStatus:
		return "HttpStatusError"
	case ErrResponseNotText:
		return "ResponseNotText"
	case ErrMissingContainer:
		return "MissingContainer"
	case ErrMissingNode:
		return "MissingNode"
	case ErrMissingChildren:
		return "MissingChildren"
	case ErrMissingAttribute:
		return "MissingAttribute"
	case ErrInvalidEncoding:
		return "InvalidEncoding"
	case ErrUnparsableURL:
		return "UnparsableUrl"
	case ErrMissingLabel:
		return "MissingLabel"
	case ErrInvalidSlug:
		return "InvalidSlug"
	case ErrCredentialMissing:
		return "CredentialMissing"
	case ErrFileRead:
		return "FileReadFailed"
	case ErrAuthRejected:
		return "AuthRejected"
	default:
		return "Unknown"
	}
}

// String returns the string representation of ErrorSeverity
func (es ErrorSeverity) String() string {
	switch es {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// NewCatboxError creates a new CatboxError with the default suggestion and severity for its kind
func NewCatboxError(errorType ErrorType, message string) *CatboxError {
	return &CatboxError{
		Type:       errorType,
		Message:    message,
		Severity:   getDefaultSeverity(errorType),
		Suggestion: getDefaultSuggestion(errorType),
		Context:    make(map[string]interface{}),
	}
}

// WithCause wraps the underlying error
func (e *CatboxError) WithCause(err error) *CatboxError {
	e.Err = err
	return e
}

// WithSuggestion adds a custom suggestion to the error
func (e *CatboxError) WithSuggestion(suggestion string) *CatboxError {
	e.Suggestion = suggestion
	return e
}

// WithContext adds context information to the error
func (e *CatboxError) WithContext(key string, value interface{}) *CatboxError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsCritical returns true if the error is critical and should stop execution
func (e *CatboxError) IsCritical() bool {
	return e.Severity == SeverityCritical
}

// IsKind reports whether any error in err's chain is a CatboxError of the given kind
func IsKind(err error, kind ErrorType) bool {
	var ce *CatboxError
	if errors.As(err, &ce) {
		return ce.Type == kind
	}
	return false
}

// KindOf returns the kind of the first CatboxError in err's chain
func KindOf(err error) (ErrorType, bool) {
	var ce *CatboxError
	if errors.As(err, &ce) {
		return ce.Type, true
	}
	return 0, false
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field      string                 `json:"field"`
	Message    string                 `json:"message"`
	Value      interface{}            `json:"value,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := []string{fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, " - ")
}

// DetailedError returns a detailed validation error message
func (e *ValidationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Validation Error for field '%s'", e.Field))
	parts = append(parts, fmt.Sprintf("Message: %s", e.Message))

	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("Provided value: %v", e.Value))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewValidationErrorWithValue creates a ValidationError with the invalid value
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Context: make(map[string]interface{}),
	}
}

// WithSuggestion adds a suggestion to the validation error
func (e *ValidationError) WithSuggestion(suggestion string) *ValidationError {
	e.Suggestion = suggestion
	return e
}

// WithContext adds context to the validation error
func (e *ValidationError) WithContext(key string, value interface{}) *ValidationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// getDefaultSuggestion returns a default suggestion based on error type
func getDefaultSuggestion(errorType ErrorType) string {
	switch errorType {
	case ErrClientConstruction:
		return "Check the proxy URL and timeout settings"
	case ErrNetworkRequest:
		return "Check your internet connection and try again. Consider using a proxy if needed"
	case ErrHTTPStatus:
		return "The server refused the request. Try again later"
	case ErrResponseNotText:
		return "The server sent a response that is not text. The service may be degraded"
	case ErrMissingContainer, ErrMissingChildren, ErrMissingAttribute, ErrMissingLabel:
		return "The page layout no longer matches what the client expects"
	case ErrMissingNode:
		return "Internal parser invariant violated. Please report this with --debug output"
	case ErrInvalidEncoding:
		return "The page contains attribute values that are not valid UTF-8"
	case ErrUnparsableURL:
		return "Provide a full URL such as https://catbox.moe/c/abc123 or a bare short code"
	case ErrInvalidSlug:
		return "Run `catbox file list` to see the files owned by this account"
	case ErrCredentialMissing:
		return "Save credentials with `catbox config save --username U --password P`"
	case ErrFileRead:
		return "Check that the file exists and is readable"
	case ErrAuthRejected:
		return "Check the saved username and password"
	default:
		return "Please check the error details and try again"
	}
}

// getDefaultSeverity returns the default severity for an error type
func getDefaultSeverity(errorType ErrorType) ErrorSeverity {
	switch errorType {
	case ErrNetworkRequest:
		return SeverityWarning
	case ErrCredentialMissing, ErrAuthRejected, ErrClientConstruction, ErrMissingNode:
		return SeverityCritical
	default:
		return SeverityError
	}
}

// redactSensitiveURL redacts query strings, which may carry credentials
func redactSensitiveURL(url string) string {
	if strings.Contains(url, "?") {
		parts := strings.Split(url, "?")
		return parts[0] + "?[REDACTED]"
	}
	return url
}

// Constructors for the kinds that carry a payload

// NewNetworkRequestError creates an error for a request that never produced a response
func NewNetworkRequestError(endpoint string, cause error) *CatboxError {
	err := NewCatboxError(ErrNetworkRequest, "request failed").WithCause(cause)
	err.Endpoint = endpoint
	return err
}

// NewHTTPStatusError creates an error for a non-success response
func NewHTTPStatusError(endpoint string, code int) *CatboxError {
	err := NewCatboxError(ErrHTTPStatus, "non-success status code")
	err.StatusCode = code
	err.Endpoint = endpoint
	return err
}

// NewResponseNotTextError creates an error for a body that could not be decoded as text
func NewResponseNotTextError(endpoint string, cause error) *CatboxError {
	err := NewCatboxError(ErrResponseNotText, "response body is not text").WithCause(cause)
	err.Endpoint = endpoint
	return err
}

// NewFileReadError creates an error for a local file that could not be read
func NewFileReadError(path string, cause error) *CatboxError {
	err := NewCatboxError(ErrFileRead, "failed to read file").WithCause(cause)
	err.Path = path
	return err
}

// NewInvalidSlugError creates an error for a slug the account does not own
func NewInvalidSlugError(slug string) *CatboxError {
	return NewCatboxError(ErrInvalidSlug, fmt.Sprintf("slug %q can not be found in user profile", slug)).
		WithContext("slug", slug)
}

// NewUnparsableURLError creates an error for a value that is not an absolute URL
func NewUnparsableURLError(raw string, cause error) *CatboxError {
	return NewCatboxError(ErrUnparsableURL, fmt.Sprintf("can not parse %q as a URL", raw)).
		WithCause(cause)
}

// NewCredentialMissingError creates an error for an absent username or password
func NewCredentialMissingError(field string) *CatboxError {
	return NewCatboxError(ErrCredentialMissing, fmt.Sprintf("lack of %s", field)).
		WithContext("field", field)
}
