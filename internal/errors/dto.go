package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds the user-facing response for an error: the hint
// chain becomes the display message and any reportable details are decoded
// back into a structured map
func NewErrorResponse(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	resp := &ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display:       strings.Join(errors.GetAllHints(err), "; "),
			InternalError: err.Error(),
		},
	}

	for _, d := range errors.GetAllSafeDetails(err) {
		for _, s := range d.SafeDetails {
			raw, ok := strings.CutPrefix(s, "__json__:")
			if !ok {
				continue
			}
			details := make(map[string]any)
			if jsonErr := json.Unmarshal([]byte(raw), &details); jsonErr == nil {
				resp.Error.Details = details
			}
		}
	}

	if resp.Error.Display == "" {
		resp.Error.Display = "Something went wrong. Please try again later."
	}

	return resp
}
