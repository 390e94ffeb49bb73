package frontend

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/fruits/internal/api"
	"github.com/Brownie44l1/fruits/internal/client"
)

var fruits = []string{"Banana", "Strawberry", "Watermelon"}

type service struct {
	healthStatus  int
	// predictStatus fails /predict with this status when set.
	predictStatus int
	// dropPredict closes the connection without answering /predict.
	dropPredict   bool
	predictCalls  int32
}

func (s *service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		if s.healthStatus != http.StatusOK {
			w.WriteHeader(s.healthStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(api.Health{Status: "healthy", ModelLoaded: true})
	case "/predict":
		atomic.AddInt32(&s.predictCalls, 1)
		if s.dropPredict {
			panic(http.ErrAbortHandler)
		}
		if s.predictStatus != 0 {
			http.Error(w, "boom", s.predictStatus)
			return
		}
		_, _ = w.Write([]byte(`{"prediction":"Banana 1","confidence":0.95,` +
			`"probabilities":{"Banana 1":0.95,"Strawberry 1":0.03,"Watermelon 1":0.02}}`))
	}
}

func setup(t *testing.T, healthStatus int) (*service, http.Handler) {
	t.Helper()
	svc := &service{healthStatus: healthStatus}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	c := client.New(srv.URL, client.WithHealthCache(client.NewHealthCache(time.Minute)))
	return svc, NewServer(c, fruits).Routes()
}

func uploadRequest(t *testing.T, filename string) *http.Request {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{240, 220, 40, 255})
		}
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(UploadField, filename)
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, img))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/classify", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexAvailable(t *testing.T) {
	_, h := setup(t, http.StatusOK)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "API is running")
	assert.Contains(t, body, `action="/classify"`)
	assert.Contains(t, body, "🍉 Watermelon")
	assert.NotContains(t, body, Hint)
}

func TestUnavailableServiceSkipsPrediction(t *testing.T) {
	svc, h := setup(t, http.StatusServiceUnavailable)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `id="unavailable"`)
	assert.Contains(t, body, Hint)
	assert.NotContains(t, body, "<form")

	rec = serve(h, uploadRequest(t, "banana.png"))
	assert.Contains(t, rec.Body.String(), `id="unavailable"`)
	assert.EqualValues(t, 0, atomic.LoadInt32(&svc.predictCalls))
}

func TestClassifyRendersBreakdown(t *testing.T) {
	svc, h := setup(t, http.StatusOK)

	rec := serve(h, uploadRequest(t, "banana.png"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&svc.predictCalls))

	body := rec.Body.String()
	assert.Contains(t, body, `<h2 id="prediction">Banana 1</h2>`)
	assert.Contains(t, body, `<h2 id="confidence">95.0%</h2>`)
	assert.Contains(t, body, "Very confident prediction!")
	assert.Contains(t, body, `action="/classify"`)

	assert.Equal(t, 3, strings.Count(body, `class="row probability"`))
	banana := strings.Index(body, "🍌 Banana 1")
	strawberry := strings.Index(body, "🍓 Strawberry 1")
	watermelon := strings.Index(body, "🍉 Watermelon 1")
	require.True(t, banana > 0 && strawberry > 0 && watermelon > 0)
	assert.True(t, banana < strawberry && strawberry < watermelon)
}

func TestClassifyServiceError(t *testing.T) {
	svc, h := setup(t, http.StatusOK)
	svc.predictStatus = http.StatusInternalServerError

	rec := serve(h, uploadRequest(t, "banana.png"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&svc.predictCalls))

	body := rec.Body.String()
	assert.Contains(t, body, `id="error"`)
	assert.Contains(t, body, "API Error: 500 - boom")
	assert.Contains(t, body, `action="/classify"`)
	assert.NotContains(t, body, `id="result"`)
}

func TestClassifyConnectionDropped(t *testing.T) {
	svc, h := setup(t, http.StatusOK)
	svc.dropPredict = true

	rec := serve(h, uploadRequest(t, "banana.png"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `id="error"`)
	assert.Contains(t, body, "prediction request failed")
	assert.Contains(t, body, `action="/classify"`)
	assert.NotContains(t, body, `id="result"`)
}

func TestClassifyRejectsUnsupportedFile(t *testing.T) {
	svc, h := setup(t, http.StatusOK)

	rec := serve(h, uploadRequest(t, "banana.gif"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `id="error"`)
	assert.Contains(t, body, `action="/classify"`)
	assert.EqualValues(t, 0, atomic.LoadInt32(&svc.predictCalls))
}

func TestClassifyWithoutUpload(t *testing.T) {
	_, h := setup(t, http.StatusOK)

	req := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader(""))
	rec := serve(h, req)
	assert.Contains(t, rec.Body.String(), "Please choose an image to upload")
}

func TestMethodsAndPaths(t *testing.T) {
	_, h := setup(t, http.StatusOK)

	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, httptest.NewRequest(http.MethodGet, "/classify", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(h, httptest.NewRequest(http.MethodGet, "/missing", nil)).Code)
}
