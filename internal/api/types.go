// Package api holds the JSON bodies exchanged with the prediction service.
package api

// Prediction is the body returned by POST /predict.
type Prediction struct {
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Health is the body returned by GET /.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// StatusHealthy is the status reported by a running service.
const StatusHealthy = "healthy"

// UploadField is the multipart field carrying the image in POST /predict.
const UploadField = "file"
