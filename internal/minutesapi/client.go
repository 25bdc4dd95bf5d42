// Package minutesapi talks to the external minutes service: one endpoint turns
// an uploaded document into structured minutes, the other revises minutes
// from a free-text critique.
package minutesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/strrl/minutes-workspace/pkg/models"
)

// Endpoint paths, relative to the base URL.
const (
	GeneratePath = "/generate_minutes/"
	CritiquePath = "/process_critique/"
)

// Operation names used in errors and logs.
const (
	OpGenerate = "generate_minutes"
	OpCritique = "process_critique"
)

// Result is a successful response: the minutes plus the critique the service
// reports as processed, if any.
type Result struct {
	Minutes  models.MinutesDocument
	Critique string
}

// Client calls the minutes service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GenerateMinutes uploads doc and returns the generated minutes.
func (c *Client) GenerateMinutes(ctx context.Context, doc models.Document) (*Result, error) {
	return c.post(ctx, OpGenerate, GeneratePath, func(w *multipart.Writer) error {
		return writeFile(w, doc)
	})
}

// ProcessCritique re-sends doc together with the critique and the current
// minutes, and returns the revised minutes.
func (c *Client) ProcessCritique(ctx context.Context, doc models.Document, critique string, current models.MinutesDocument) (*Result, error) {
	article, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("encoding article: %w", err)
	}
	return c.post(ctx, OpCritique, CritiquePath, func(w *multipart.Writer) error {
		if err := writeFile(w, doc); err != nil {
			return err
		}
		if err := w.WriteField("critique", critique); err != nil {
			return err
		}
		return w.WriteField("article", string(article))
	})
}

func writeFile(w *multipart.Writer, doc models.Document) error {
	part, err := w.CreateFormFile("file", doc.Name)
	if err != nil {
		return err
	}
	_, err = part.Write(doc.Content)
	return err
}

func (c *Client) post(ctx context.Context, op, path string, build func(*multipart.Writer) error) (*Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := build(writer); err != nil {
		return nil, fmt.Errorf("building %s request: %w", op, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("building %s request: %w", op, err)
	}

	log := c.logger.With().
		Str("request_id", uuid.NewString()).
		Str("op", op).
		Logger()

	send := func(ctx context.Context) (*Result, error) {
		return c.do(ctx, log, op, path, writer.FormDataContentType(), body.Bytes())
	}

	var (
		res *Result
		err error
	)
	if c.timeout > 0 {
		t := timeout.New[*Result](timeout.Config{
			DefaultTimeout: c.timeout,
		})
		res, err = t.Execute(ctx, c.timeout, send)
	} else {
		res, err = send(ctx)
	}
	if err != nil {
		var serverErr *ServerError
		var transportErr *TransportError
		if !errors.As(err, &serverErr) && !errors.As(err, &transportErr) {
			err = &TransportError{Op: op, Err: err}
		}
		return nil, err
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, log zerolog.Logger, op, path, contentType string, payload []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	log.Debug().Str("url", req.URL.String()).Int("bytes", len(payload)).Msg("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("request failed")
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("reading response failed")
		return nil, &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	log.Info().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serverErr, err := decodeServerError(resp, respBody)
		if err != nil {
			log.Error().Err(err).Str("body", truncate(string(respBody), 200)).Msg("undecodable error body")
			return nil, &TransportError{Op: op, Err: err}
		}
		serverErr.Op = op
		return nil, serverErr
	}

	if !isJSONObject(respBody) {
		log.Error().Str("body", truncate(string(respBody), 200)).Msg("response body is not a JSON object")
		return nil, &TransportError{Op: op, Err: fmt.Errorf("unexpected response body: %s", truncate(string(respBody), 80))}
	}

	var decoded minutesResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		log.Error().Err(err).Str("body", truncate(string(respBody), 200)).Msg("undecodable response body")
		return nil, &TransportError{Op: op, Err: fmt.Errorf("parsing response: %w", err)}
	}

	if decoded.Error != "" {
		log.Warn().Str("error", decoded.Error).Msg("service reported an error in a success response")
		return nil, &ServerError{
			Op:         op,
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			Detail:     decoded.Error,
		}
	}

	res := &Result{Minutes: decoded.MinutesDocument}
	if decoded.Critique != nil {
		res.Critique = *decoded.Critique
	}
	return res, nil
}

// minutesResponse is the success body: minutes plus optional critique. The
// service reports some internal failures as {"error": "..."} with status 200.
type minutesResponse struct {
	models.MinutesDocument
	Critique *string `json:"critique"`
	Error    string  `json:"error"`
}

// UnmarshalJSON is needed because the embedded document has its own decoder,
// which would otherwise swallow the whole object.
func (r *minutesResponse) UnmarshalJSON(data []byte) error {
	var extra struct {
		Critique *string `json:"critique"`
		Error    string  `json:"error"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &r.MinutesDocument); err != nil {
		return err
	}
	r.Critique = extra.Critique
	r.Error = extra.Error
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
