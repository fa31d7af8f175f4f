package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Code       string      `json:"code,omitempty"`    // machine-readable error code
	Details    interface{} `json:"details,omitempty"` // offending field/id context
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// BusinessError returns an error response carrying the structured code and details
func BusinessError(statusCode int, code, message string, details interface{}) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      message,
		Code:       code,
		Details:    details,
	}
}
