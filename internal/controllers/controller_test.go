package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"youtrack-client/internal/config"
	"youtrack-client/internal/repositories"
	"youtrack-client/internal/services"
)

type upstreamRequest struct {
	Method    string
	Path      string
	Query     url.Values
	Body      string
	RequestID string
}

// upstream is a fake YouTrack answering by request path
type upstream struct {
	mu        sync.Mutex
	requests  []upstreamRequest
	responses map[string]cannedResponse
}

type cannedResponse struct {
	status int
	body   string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)

	u.mu.Lock()
	u.requests = append(u.requests, upstreamRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Body:      string(raw),
		RequestID: r.Header.Get(repositories.RequestIDHeader),
	})
	resp, ok := u.responses[r.Method+" "+r.URL.Path]
	u.mu.Unlock()

	if !ok {
		resp = cannedResponse{status: http.StatusOK, body: `[]`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (u *upstream) last(t *testing.T) upstreamRequest {
	t.Helper()
	u.mu.Lock()
	defer u.mu.Unlock()
	require.NotEmpty(t, u.requests)
	return u.requests[len(u.requests)-1]
}

func newTestHandler(t *testing.T, responses map[string]cannedResponse) (http.Handler, *upstream) {
	t.Helper()
	fake := &upstream{responses: responses}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	service := services.NewYouTrackService(&config.Config{
		YouTrack: config.YouTrackConfig{BaseURL: server.URL, Token: "perm:test", Timeout: 5},
	})
	return NewController(service).Handler(), fake
}

func serve(handler http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_MapToUpstream(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		wantPath string
		wantSkip string
		wantTop  string
		wantQ    string
	}{
		{name: "projects", method: "GET", target: "/projects", wantPath: "/api/admin/projects", wantSkip: "0", wantTop: "5065550"},
		{name: "project issues", method: "GET", target: "/projects/DM/issues", wantPath: "/api/issues", wantSkip: "0", wantTop: "5065550", wantQ: "project: DM"},
		{name: "project articles", method: "GET", target: "/projects/DM/articles?offset=5", wantPath: "/api/admin/projects/DM/articles", wantSkip: "5", wantTop: "5065550"},
		{name: "agiles", method: "GET", target: "/agiles", wantPath: "/api/agiles"},
		{name: "issues", method: "GET", target: "/issues?query=%23Unresolved&offset=10&limit=20", wantPath: "/api/issues", wantSkip: "10", wantTop: "20", wantQ: "#Unresolved"},
		{name: "organizations", method: "GET", target: "/organizations", wantPath: "/api/admin/organizations"},
		{name: "users", method: "GET", target: "/users", wantPath: "/api/users"},
		{name: "articles", method: "GET", target: "/articles", wantPath: "/api/articles"},
		{name: "article children", method: "GET", target: "/articles/KB-A-1/childArticles", wantPath: "/api/articles/KB-A-1/childArticles", wantSkip: "0", wantTop: "50"},
		{name: "issues default page", method: "GET", target: "/issues", wantPath: "/api/issues", wantSkip: "0", wantTop: "50"},
		{name: "project issues limit", method: "GET", target: "/projects/DM/issues?limit=10", wantPath: "/api/issues", wantSkip: "0", wantTop: "10", wantQ: "project: DM"},
		{name: "article attachments default", method: "GET", target: "/articles/KB-A-1/attachments", wantPath: "/api/articles/KB-A-1/attachments", wantSkip: "0", wantTop: "500"},
		{name: "article attachments", method: "GET", target: "/articles/KB-A-1/attachments?limit=3", wantPath: "/api/articles/KB-A-1/attachments", wantSkip: "0", wantTop: "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, fake := newTestHandler(t, nil)

			rec := serve(handler, tt.method, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, `[]`, rec.Body.String())

			req := fake.last(t)
			assert.Equal(t, tt.wantPath, req.Path)
			assert.Equal(t, tt.wantSkip, req.Query.Get("$skip"))
			assert.Equal(t, tt.wantTop, req.Query.Get("$top"))
			assert.Equal(t, tt.wantQ, req.Query.Get("query"))
		})
	}
}

func TestRoutes_SingleRecords(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		upstream string
	}{
		{name: "project", target: "/projects/0-1", upstream: "/api/admin/projects/0-1"},
		{name: "time tracking", target: "/projects/0-1/timeTrackingSettings", upstream: "/api/admin/projects/0-1/timeTrackingSettings"},
		{name: "agile", target: "/agiles/120-1", upstream: "/api/agiles/120-1"},
		{name: "issue", target: "/issues/DM-1", upstream: "/api/issues/DM-1"},
		{name: "article", target: "/articles/KB-A-1", upstream: "/api/articles/KB-A-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, fake := newTestHandler(t, map[string]cannedResponse{
				"GET " + tt.upstream: {status: http.StatusOK, body: `{"$type":"X","id":"9-9","name":"x"}`},
			})

			rec := serve(handler, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "9-9", body["$id"])
			assert.NotContains(t, body, "$type")
			assert.Equal(t, tt.upstream, fake.last(t).Path)
		})
	}
}

func TestGetIssue_Serialization(t *testing.T) {
	handler, _ := newTestHandler(t, map[string]cannedResponse{
		"GET /api/issues/DM-1": {status: http.StatusOK, body: `{
			"$type": "Issue",
			"id": "2-1",
			"idReadable": "DM-1",
			"customFields": [{"$type": "StateIssueCustomField", "name": "State", "value": {"name": "Open"}}],
			"reporter": {"$type": "User", "id": "1-1", "fullName": "Ann"}
		}`},
	})

	rec := serve(handler, http.MethodGet, "/issues/DM-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `{
		"$id": "2-1",
		"id": "DM-1",
		"idReadable": "DM-1",
		"custom": {
			"State": {"$type": "StateIssueCustomField", "name": "State", "value": {"name": "Open"}}
		},
		"reporter": {"$id": "1-1", "id": "1-1", "fullName": "Ann"}
	}`, rec.Body.String())
}

func TestGetIssue_NotFoundPassesThrough(t *testing.T) {
	const notFound = `{"error":"Not Found","error_description":"Entity with id DM-404 not found"}`
	handler, _ := newTestHandler(t, map[string]cannedResponse{
		"GET /api/issues/DM-404": {status: http.StatusNotFound, body: notFound},
	})

	rec := serve(handler, http.MethodGet, "/issues/DM-404", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, notFound, rec.Body.String())
}

func TestPagination_InvalidValues(t *testing.T) {
	handler, fake := newTestHandler(t, nil)

	for _, target := range []string{"/issues?offset=abc", "/projects?limit=1.5"} {
		rec := serve(handler, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.requests)
}

func TestUpdateIssue(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "typed issue",
			response: `{"$type":"Issue","id":"2-1","idReadable":"DM-1","summary":"New"}`,
			want:     `{"$id":"2-1","id":"DM-1","idReadable":"DM-1","summary":"New","custom":{}}`,
		},
		{
			name:     "raw error payload",
			response: `{"error":"bad_request","error_description":"Unknown field"}`,
			want:     `{"error":"bad_request","error_description":"Unknown field"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, fake := newTestHandler(t, map[string]cannedResponse{
				"POST /api/issues/DM-1": {status: http.StatusOK, body: tt.response},
			})

			rec := serve(handler, http.MethodPost, "/issues/DM-1?mute=true", `{"summary":"New"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, tt.want, rec.Body.String())

			req := fake.last(t)
			assert.Equal(t, "true", req.Query.Get("muteUpdateNotifications"))
			assert.JSONEq(t, `{"summary":"New"}`, req.Body)
		})
	}
}

func TestUpdateIssue_InvalidBody(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	rec := serve(handler, http.MethodPost, "/issues/DM-1", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunCommand(t *testing.T) {
	handler, fake := newTestHandler(t, map[string]cannedResponse{
		"POST /api/commands": {status: http.StatusOK, body: `{"query":"Fixed"}`},
	})

	rec := serve(handler, http.MethodPost, "/commands", `{"query":"Fixed","issues":[{"idReadable":"DM-3"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"Fixed"}`, rec.Body.String())
	assert.JSONEq(t, `{"query":"Fixed","issues":[{"idReadable":"DM-3"}]}`, fake.last(t).Body)
}

func TestRequestID(t *testing.T) {
	handler, fake := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set(repositories.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(repositories.RequestIDHeader))
	assert.Equal(t, "abc-123", fake.last(t).RequestID)

	rec = serve(handler, http.MethodGet, "/users", "")
	assert.NotEmpty(t, rec.Header().Get(repositories.RequestIDHeader))
}

func TestUnknownRoute(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	assert.Equal(t, http.StatusNotFound, serve(handler, http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(handler, http.MethodDelete, "/issues/DM-1", "").Code)
}

func TestRoutes_Table(t *testing.T) {
	patterns := make(map[string]bool)
	for _, r := range Routes {
		assert.False(t, patterns[r.Pattern()], "duplicate route %s", r.Pattern())
		patterns[r.Pattern()] = true
		assert.NotEmpty(t, r.Name)
	}

	for _, p := range []string{
		"GET /projects",
		"GET /projects/{id}",
		"GET /projects/{id}/issues",
		"GET /projects/{id}/articles",
		"GET /projects/{id}/timeTrackingSettings",
		"GET /agiles",
		"GET /agiles/{id}",
		"GET /issues",
		"GET /issues/{id}",
		"GET /organizations",
		"GET /users",
		"GET /articles",
		"GET /articles/{id}",
		"GET /articles/{id}/childArticles",
	} {
		assert.True(t, patterns[p], "missing route %s", p)
	}
}
