package hassio

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of a gateway failure
type ErrorType int

const (
	// ErrTypeTransport indicates a network failure or a non-2xx HTTP status
	ErrTypeTransport ErrorType = iota
	// ErrTypeMalformedResponse indicates a Supervisor envelope without a "result" field
	ErrTypeMalformedResponse
	// ErrTypeSupervisorReported indicates an envelope whose result is not "ok"
	ErrTypeSupervisorReported
	// ErrTypeDeletionRefused indicates the Supervisor rejected a delete with HTTP 400
	ErrTypeDeletionRefused
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeMalformedResponse:
		return "Malformed Response"
	case ErrTypeSupervisorReported:
		return "Supervisor Error"
	case ErrTypeDeletionRefused:
		return "Deletion Refused"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ErrReplyTooLarge is wrapped by the transport error returned when a
// Supervisor reply is bigger than the validator will buffer
var ErrReplyTooLarge = errors.New("reply too large")

// GatewayError is returned by every Gateway operation that fails
type GatewayError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable message; for ErrTypeSupervisorReported this is the reported result
	StatusCode int       // HTTP status code (0 when no response was received)
	URL        string    // Request URL
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a failure to get any response at all
func NewTransportError(url string, err error) *GatewayError {
	return &GatewayError{
		Type:    ErrTypeTransport,
		Message: "request failed",
		URL:     url,
		Err:     err,
	}
}

// NewHTTPError creates a transport error for a non-2xx response
func NewHTTPError(url string, statusCode int) *GatewayError {
	return &GatewayError{
		Type:       ErrTypeTransport,
		Message:    fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		StatusCode: statusCode,
		URL:        url,
	}
}

// NewReplyTooLargeError reports a 2xx reply whose body exceeds limit bytes
func NewReplyTooLargeError(url string, statusCode int, limit int64) *GatewayError {
	return &GatewayError{
		Type:       ErrTypeTransport,
		Message:    fmt.Sprintf("reply exceeds %d bytes", limit),
		StatusCode: statusCode,
		URL:        url,
		Err:        ErrReplyTooLarge,
	}
}

// NewMalformedResponseError reports a Supervisor reply that is not a valid envelope
func NewMalformedResponseError(url string, body []byte, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrTypeMalformedResponse,
		Message:    "Malformed response from Hassio: " + truncate(string(body), 256),
		StatusCode: http.StatusOK,
		URL:        url,
		Err:        err,
	}
}

// NewSupervisorReportedError carries the Supervisor's own result string
func NewSupervisorReportedError(url string, result string) *GatewayError {
	return &GatewayError{
		Type:       ErrTypeSupervisorReported,
		Message:    result,
		StatusCode: http.StatusOK,
		URL:        url,
	}
}

// NewDeletionRefusedError reclassifies a 400 from the snapshot remove endpoint
func NewDeletionRefusedError(slug string, cause *GatewayError) *GatewayError {
	return &GatewayError{
		Type:       ErrTypeDeletionRefused,
		Message:    fmt.Sprintf("Supervisor refused to delete snapshot %s", slug),
		StatusCode: cause.StatusCode,
		URL:        cause.URL,
		Err:        cause,
	}
}

func asGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

func hasType(err error, t ErrorType) bool {
	gwErr, ok := asGatewayError(err)
	return ok && gwErr.Type == t
}

// IsTransportError checks if an error is a network or HTTP status failure
func IsTransportError(err error) bool {
	return hasType(err, ErrTypeTransport)
}

// IsMalformedResponse checks if an error is a malformed Supervisor envelope
func IsMalformedResponse(err error) bool {
	return hasType(err, ErrTypeMalformedResponse)
}

// IsSupervisorReported checks if the Supervisor answered with a non-ok result
func IsSupervisorReported(err error) bool {
	return hasType(err, ErrTypeSupervisorReported)
}

// IsDeletionRefused checks if a delete was refused by the Supervisor
func IsDeletionRefused(err error) bool {
	return hasType(err, ErrTypeDeletionRefused)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	if gwErr, ok := asGatewayError(err); ok {
		return gwErr.StatusCode
	}
	return 0
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	gwErr, ok := asGatewayError(err)
	if !ok {
		return err.Error()
	}

	switch gwErr.Type {
	case ErrTypeTransport:
		if errors.Is(gwErr.Err, ErrReplyTooLarge) {
			return "Supervisor reply too large"
		}
		if gwErr.StatusCode == http.StatusUnauthorized || gwErr.StatusCode == http.StatusForbidden {
			return fmt.Sprintf("Not authorized (HTTP %d) - check the configured token or HASSIO_TOKEN", gwErr.StatusCode)
		}
		if gwErr.StatusCode != 0 {
			return fmt.Sprintf("Request failed (HTTP %d)", gwErr.StatusCode)
		}
		return "Supervisor unreachable - check the configured URL"
	case ErrTypeMalformedResponse:
		return "Supervisor returned an unexpected response"
	case ErrTypeSupervisorReported:
		return "Hassio said: " + gwErr.Message
	case ErrTypeDeletionRefused:
		return "The Supervisor refused to delete the snapshot"
	default:
		return gwErr.Message
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
