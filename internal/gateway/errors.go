package gateway

import "errors"

// ErrUnauthorized signals an expired or rejected access token. The bound
// client refreshes once and retries before surfacing it.
var ErrUnauthorized = errors.New("unauthorized")

// ServiceError carries a remote failure message verbatim. The UI shows it
// as-is; no local reinterpretation happens.
type ServiceError struct {
	HTTPStatus int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "service request failed"
}

// AsServiceError unwraps a ServiceError if err carries one.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
