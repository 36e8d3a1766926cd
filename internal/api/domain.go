package api

// Response is the body written by ErrorResponse.
type Response struct {
	Success   bool   `json:"success" example:"false"`
	Error     string `json:"error,omitempty" example:"requested item not found"`
	RequestID string `json:"request_id,omitempty" example:"host/abc-000001"`
}
