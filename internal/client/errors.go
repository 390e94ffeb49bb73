package client

import "fmt"

// ModelUnavailableError reports a prediction service that failed its health check.
type ModelUnavailableError struct {
	URL string
	// Status is the HTTP status returned, or 0 when the request itself failed.
	Status int
	Err    error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model service at %s unavailable: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("model service at %s unavailable: status %d", e.URL, e.Status)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// PredictionRequestError reports a failed or rejected prediction request.
type PredictionRequestError struct {
	Status int
	Body   string
	Err    error
}

func (e *PredictionRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("prediction request failed: %v", e.Err)
	}
	return fmt.Sprintf("API Error: %d - %s", e.Status, e.Body)
}

func (e *PredictionRequestError) Unwrap() error {
	return e.Err
}
