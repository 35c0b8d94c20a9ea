package http_common

type ErrorResponse struct {
	Message string `json:"message"`

	// RetryAfter is set only on 429 responses, in seconds.
	RetryAfter int `json:"retry_after,omitempty"`
}
