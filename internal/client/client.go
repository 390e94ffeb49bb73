// Package client talks to the prediction service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/fruits/internal/api"
)

const (
	// DefaultURL is the prediction service address used when none is configured.
	DefaultURL = "http://localhost:8000"

	HealthTimeout  = 5 * time.Second
	PredictTimeout = 30 * time.Second
)

// Client calls one prediction service. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *HealthCache
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHealthCache replaces DefaultHealthCache.
func WithHealthCache(cache *HealthCache) Option {
	return func(c *Client) { c.cache = cache }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		cache:   DefaultHealthCache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) URL() string {
	return c.baseURL
}

// Health queries GET / on the service. Any 200 response counts as healthy; a body
// that is not the JSON health document leaves the returned Health zero.
func (c *Client) Health(ctx context.Context) (*api.Health, error) {
	ctx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()

	url := c.baseURL + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ModelUnavailableError{URL: c.baseURL, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ModelUnavailableError{URL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ModelUnavailableError{URL: c.baseURL, Status: resp.StatusCode}
	}

	var health api.Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		log.WithError(err).WithField("url", c.baseURL).Debug("health response is not JSON")
		return &api.Health{}, nil
	}
	return &health, nil
}

// Available reports whether the service answered its health check, reusing a
// result cached within the TTL.
func (c *Client) Available(ctx context.Context) bool {
	if available, ok := c.cache.Get(c.baseURL); ok {
		return available
	}

	_, err := c.Health(ctx)
	if err != nil {
		log.WithError(err).Warn("prediction service health check failed")
	}
	c.cache.Put(c.baseURL, err == nil)
	return err == nil
}

// PredictImage encodes img as JPEG and classifies it.
func (c *Client) PredictImage(ctx context.Context, img image.Image) (*api.Prediction, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpeg.DefaultQuality}); err != nil {
		return nil, errors.Wrap(err, "encoding image")
	}
	return c.predict(ctx, "image.jpg", "image/jpeg", &buf)
}

// PredictFile uploads the raw bytes of a file without decoding them.
func (c *Client) PredictFile(ctx context.Context, name string, r io.Reader) (*api.Prediction, error) {
	return c.predict(ctx, name, "image/jpeg", r)
}

func (c *Client) predict(ctx context.Context, name, contentType string, r io.Reader) (*api.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, PredictTimeout)
	defer cancel()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+escapeQuotes(api.UploadField)+`"; filename="`+escapeQuotes(name)+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, errors.Wrap(err, "building upload")
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, errors.Wrap(err, "reading upload")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "building upload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &body)
	if err != nil {
		return nil, &PredictionRequestError{Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &PredictionRequestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &PredictionRequestError{Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	var p api.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, &PredictionRequestError{Status: resp.StatusCode, Err: errors.Wrap(err, "decoding prediction")}
	}
	return &p, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// escapeQuotes makes s safe inside a quoted Content-Disposition parameter.
func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
