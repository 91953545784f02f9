package dto

import "time"

// ErrorResponse is the standard JSON error body returned by the API.
//
// Fields:
//   - Message: human-readable summary of the failure.
//   - ErrorDetails: optional underlying error text.
//   - Timestamp: when the error response was created.
type ErrorResponse struct {
	Message      string    `json:"message" example:"invalid trigger payload"`
	ErrorDetails string    `json:"error,omitempty" example:"unexpected end of JSON input"`
	Timestamp    time.Time `json:"timestamp"`
}

// Error implements the error interface so an ErrorResponse can travel as a
// plain error where convenient.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails != "" {
		return e.Message + ": " + e.ErrorDetails
	}
	return e.Message
}

// NewErrorResponse builds an ErrorResponse from a message and an optional
// underlying error.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   message,
		Timestamp: time.Now(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
