package application

import "net/http"

// RequestError is a publish failure with a fixed HTTP mapping. The message
// is safe to surface to the CI client verbatim.
//
// The taxonomy follows the publish flow: 400 for malformed or incomplete
// requests, 404 for an unknown or replayed token (terminal, the claim is
// single-use), 413 for oversize payloads from non-whitelisted repositories,
// 401 when the claim vanishes between the initial resolve and the secondary
// check, 502 for upload failures. Reporting failures never become errors at
// all; by the time the reporting stage runs the publish is durable and the
// response is already fixed as success.
type RequestError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func clientError(message string) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: message}
}

func authorizationError(status int, message string) *RequestError {
	return &RequestError{Status: status, Message: message}
}

func policyError(message string) *RequestError {
	return &RequestError{Status: http.StatusRequestEntityTooLarge, Message: message}
}

func uploadError(err error) *RequestError {
	return &RequestError{Status: http.StatusBadGateway, Message: "artifact upload failed", Err: err}
}
