// Package handlers serves the prediction HTTP endpoint over a loaded model.
package handlers

import (
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	_ "github.com/chai2010/webp"
	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/fruits/internal/api"
	"github.com/Brownie44l1/fruits/internal/engine"
)

// MaxUploadSize bounds the multipart form parsed by Predict.
const MaxUploadSize = 10 << 20

type Handler struct {
	model *engine.Handle
}

// NewHandler serves predictions from model. A nil model reports model_loaded=false
// and rejects predictions.
func NewHandler(model *engine.Handle) *Handler {
	return &Handler{
		model: model,
	}
}

// Routes registers the service endpoints wrapped in EnableCORS.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", EnableCORS(h.Health))
	mux.HandleFunc("/predict", EnableCORS(h.Predict))
	return mux
}

// EnableCORS allows browser front-ends on other origins to call next.
func EnableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, api.Health{Status: api.StatusHealthy, ModelLoaded: h.model != nil})
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.model == nil {
		http.Error(w, "Model not loaded", http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile(api.UploadField)
	if err != nil {
		http.Error(w, "No image file provided. Use 'file' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	logs := log.WithFields(log.Fields{"file": header.Filename, "size": header.Size})

	img, format, err := image.Decode(file)
	if err != nil {
		http.Error(w, "Invalid image format. Supported: JPEG, PNG, WebP", http.StatusBadRequest)
		return
	}
	logs.Debugf("decoded %s image %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())

	probs, err := h.model.Classify(r.Context(), img)
	if err != nil {
		logs.WithError(err).Error("prediction failed")
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	result := toPrediction(h.model.Classes(), probs)
	logs.WithFields(log.Fields{
		"prediction": result.Prediction,
		"confidence": result.Confidence,
	}).Info("classified upload")
	writeJSON(w, result)
}

func toPrediction(classes []string, probs []float64) api.Prediction {
	best := engine.Argmax(probs)
	p := api.Prediction{
		Prediction:    classes[best],
		Confidence:    probs[best],
		Probabilities: make(map[string]float64, len(classes)),
	}
	for i, name := range classes {
		p.Probabilities[name] = probs[i]
	}
	return p
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("writing response")
	}
}
