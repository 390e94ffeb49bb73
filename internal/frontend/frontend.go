// Package frontend serves the browser UI that uploads images to the prediction service.
package frontend

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/fruits/internal/api"
	"github.com/Brownie44l1/fruits/internal/render"
)

// UploadField is the form field holding the uploaded image.
const UploadField = "image"

// Hint tells the user how to start the prediction service.
const Hint = "docker-compose up -d"

const maxUploadSize = 10 << 20

//go:embed templates/index.html
var templates embed.FS

var page = template.Must(template.ParseFS(templates, "templates/index.html"))

var allowedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Predictor is the part of the prediction client the UI needs.
type Predictor interface {
	Available(ctx context.Context) bool
	PredictImage(ctx context.Context, img image.Image) (*api.Prediction, error)
	URL() string
}

type fruit struct {
	Name  string
	Emoji string
}

type result struct {
	Prediction string
	Confidence string
	Rows       []render.Row
	Feedback   render.Feedback
}

type view struct {
	Available bool
	Hint      string
	APIURL    string
	Fruits    []fruit
	Error     string
	Result    *result
}

type Server struct {
	predictor Predictor
	fruits    []fruit
}

// NewServer renders predictions of p. fruits are listed in the usage instructions.
func NewServer(p Predictor, fruits []string) *Server {
	s := &Server{predictor: p}
	for _, name := range fruits {
		s.fruits = append(s.fruits, fruit{Name: name, Emoji: render.Emoji(name)})
	}
	return s
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.Index)
	mux.HandleFunc("/classify", s.Classify)
	return mux
}

func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.render(w, s.newView(r.Context()))
}

func (s *Server) Classify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	v := s.newView(r.Context())
	if !v.Available {
		s.render(w, v)
		return
	}

	img, err := readUpload(r)
	if err != nil {
		v.Error = err.Error()
		s.render(w, v)
		return
	}

	p, err := s.predictor.PredictImage(r.Context(), img)
	if err != nil {
		log.WithError(err).Warn("prediction failed")
		v.Error = err.Error()
		s.render(w, v)
		return
	}

	v.Result = &result{
		Prediction: p.Prediction,
		Confidence: render.Percent(p.Confidence),
		Rows:       render.Breakdown(p),
		Feedback:   render.FeedbackFor(p.Confidence),
	}
	s.render(w, v)
}

func (s *Server) newView(ctx context.Context) *view {
	return &view{
		Available: s.predictor.Available(ctx),
		Hint:      Hint,
		APIURL:    s.predictor.URL(),
		Fruits:    s.fruits,
	}
}

func (s *Server) render(w http.ResponseWriter, v *view) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		log.WithError(err).Error("rendering page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func readUpload(r *http.Request) (image.Image, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, errors.New("Please choose an image to upload")
	}
	file, header, err := r.FormFile(UploadField)
	if err != nil {
		return nil, errors.New("Please choose an image to upload")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return nil, errors.Errorf("Unsupported file type %q. Use jpg, jpeg or png", ext)
	}
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrap(err, "Could not read the image")
	}
	return img, nil
}
