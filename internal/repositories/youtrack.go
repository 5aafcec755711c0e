package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"youtrack-client/internal/config"
)

// Base selects which YouTrack REST base a request targets
type Base int

const (
	// BaseAPI is the primary YouTrack REST API (<base>/api)
	BaseAPI Base = iota
	// BaseHub is the Hub REST API (<hub>/api/rest)
	BaseHub
)

func (b Base) String() string {
	if b == BaseHub {
		return "hub"
	}
	return "api"
}

// RequestIDHeader carries the correlation id of an outbound request
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// WithRequestID stores a request id in ctx; outbound calls made with that
// context reuse it instead of generating a fresh one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// APIError is a non-2xx response from YouTrack. The body is kept verbatim so
// callers can hand it back unchanged.
type APIError struct {
	StatusCode  int
	Status      string
	ContentType string
	Body        []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("YouTrack API returned status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// YouTrackRepository handles YouTrack API interactions
type YouTrackRepository struct {
	apiURL string
	hubURL string
	token  string
	client *http.Client
}

// NewYouTrackRepository creates a new YouTrack repository
func NewYouTrackRepository(cfg *config.Config) *YouTrackRepository {
	return &YouTrackRepository{
		apiURL: cfg.APIURL(),
		hubURL: cfg.HubAPIURL(),
		token:  cfg.YouTrack.Token,
		client: &http.Client{
			Timeout: time.Duration(cfg.YouTrack.Timeout) * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (r *YouTrackRepository) WithHTTPClient(client *http.Client) *YouTrackRepository {
	r.client = client
	return r
}

// Get performs a GET request and returns the decoded JSON body
func (r *YouTrackRepository) Get(ctx context.Context, base Base, path string, query Query) (interface{}, error) {
	return r.do(ctx, http.MethodGet, base, path, query, nil)
}

// Post performs a POST request with a JSON body and returns the decoded JSON body
func (r *YouTrackRepository) Post(ctx context.Context, base Base, path string, query Query, body interface{}) (interface{}, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return r.do(ctx, http.MethodPost, base, path, query, jsonData)
}

func (r *YouTrackRepository) do(ctx context.Context, method string, base Base, path string, query Query, body []byte) (interface{}, error) {
	endpoint := r.baseURL(base) + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			Status:      resp.Status,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        data,
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return decoded, nil
}

func (r *YouTrackRepository) baseURL(base Base) string {
	if base == BaseHub {
		return r.hubURL
	}
	return r.apiURL
}

// Query is an ordered set of query parameters. Empty values are skipped
// when encoding so optional parameters can be added unconditionally.
type Query []QueryParam

// QueryParam is a single query parameter
type QueryParam struct {
	Key   string
	Value string
}

// Set appends a parameter
func (q Query) Set(key, value string) Query {
	return append(q, QueryParam{Key: key, Value: value})
}

// Get returns the first value stored under key
func (q Query) Get(key string) (string, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Encode renders the query string in insertion order
func (q Query) Encode() string {
	parts := make([]string, 0, len(q))
	for _, p := range q {
		if p.Value == "" {
			continue
		}
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}
