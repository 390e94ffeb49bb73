package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/fruits/internal/api"
	"github.com/Brownie44l1/fruits/internal/engine"
)

// greenClassifier favours Watermelon for green-dominant images and Banana otherwise.
type greenClassifier struct {
	err error
}

func (c *greenClassifier) Classes() []string { return []string{"Banana", "Strawberry", "Watermelon"} }

func (c *greenClassifier) Classify(_ context.Context, img image.Image) ([]float64, error) {
	if c.err != nil {
		return nil, c.err
	}
	r, g, _, _ := img.At(0, 0).RGBA()
	if g > r {
		return []float64{0.05, 0.05, 0.9}, nil
	}
	return []float64{0.95, 0.03, 0.02}, nil
}

func (c *greenClassifier) Close() error { return nil }

func upload(t *testing.T, field string, c color.RGBA) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, "image.jpg")
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(part, img, nil))
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func newServer(t *testing.T, model *engine.Handle) *httptest.Server {
	srv := httptest.NewServer(NewHandler(model).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth(t *testing.T) {
	srv := newServer(t, engine.NewHandle("model", &greenClassifier{}))

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var health api.Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, api.Health{Status: "healthy", ModelLoaded: true}, health)
}

func TestHealthWithoutModel(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var health api.Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.False(t, health.ModelLoaded)
}

func TestUnknownPath(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/docs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPredict(t *testing.T) {
	srv := newServer(t, engine.NewHandle("model", &greenClassifier{}))

	body, contentType := upload(t, "file", color.RGBA{20, 200, 30, 255})
	resp, err := http.Post(srv.URL+"/predict", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p api.Prediction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "Watermelon", p.Prediction)
	assert.InDelta(t, 0.9, p.Confidence, 1e-9)
	assert.Len(t, p.Probabilities, 3)
	assert.InDelta(t, 0.05, p.Probabilities["Banana"], 1e-9)
}

func TestPredictErrors(t *testing.T) {
	model := engine.NewHandle("model", &greenClassifier{})

	cases := []struct {
		name   string
		model  *engine.Handle
		method string
		field  string
		status int
	}{
		{"wrong method", model, http.MethodGet, "file", http.StatusMethodNotAllowed},
		{"wrong field", model, http.MethodPost, "image", http.StatusBadRequest},
		{"no model", nil, http.MethodPost, "file", http.StatusServiceUnavailable},
		{"classifier failure", engine.NewHandle("model", &greenClassifier{err: errors.New("boom")}), http.MethodPost, "file", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, contentType := upload(t, tc.field, color.RGBA{200, 20, 30, 255})
			req := httptest.NewRequest(tc.method, "/predict", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			NewHandler(tc.model).Routes().ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestPredictWebP(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{20, 200, 30, 255})
		}
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "melon.webp")
	require.NoError(t, err)
	require.NoError(t, webp.Encode(part, img, &webp.Options{Lossless: true}))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	NewHandler(engine.NewHandle("model", &greenClassifier{})).Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var p api.Prediction
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "Watermelon", p.Prediction)
}

func TestPredictRejectsNonImage(t *testing.T) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("not an image"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	NewHandler(engine.NewHandle("model", &greenClassifier{})).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	rec := httptest.NewRecorder()
	NewHandler(nil).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POST, GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}
