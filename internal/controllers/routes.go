package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"youtrack-client/internal/helpers"
	"youtrack-client/internal/repositories"
)

// Route describes a single exposed endpoint
type Route struct {
	Method  string
	Path    string
	Name    string
	handler func(*Controller) http.HandlerFunc
}

// Pattern returns the ServeMux pattern of the route
func (r Route) Pattern() string {
	return r.Method + " " + r.Path
}

// Routes is the exposed route table
var Routes = []Route{
	{Method: http.MethodGet, Path: "/projects", Name: "listProjects", handler: func(c *Controller) http.HandlerFunc { return c.listProjects }},
	{Method: http.MethodGet, Path: "/projects/{id}", Name: "getProject", handler: func(c *Controller) http.HandlerFunc { return c.getProject }},
	{Method: http.MethodGet, Path: "/projects/{id}/issues", Name: "listProjectIssues", handler: func(c *Controller) http.HandlerFunc { return c.listProjectIssues }},
	{Method: http.MethodGet, Path: "/projects/{id}/articles", Name: "listProjectArticles", handler: func(c *Controller) http.HandlerFunc { return c.listProjectArticles }},
	{Method: http.MethodGet, Path: "/projects/{id}/timeTrackingSettings", Name: "getProjectTimeTrackingSettings", handler: func(c *Controller) http.HandlerFunc { return c.getProjectTimeTrackingSettings }},

	{Method: http.MethodGet, Path: "/agiles", Name: "listAgiles", handler: func(c *Controller) http.HandlerFunc { return c.listAgiles }},
	{Method: http.MethodGet, Path: "/agiles/{id}", Name: "getAgile", handler: func(c *Controller) http.HandlerFunc { return c.getAgile }},

	{Method: http.MethodGet, Path: "/issues", Name: "listIssues", handler: func(c *Controller) http.HandlerFunc { return c.listIssues }},
	{Method: http.MethodGet, Path: "/issues/{id}", Name: "getIssue", handler: func(c *Controller) http.HandlerFunc { return c.getIssue }},
	{Method: http.MethodPost, Path: "/issues/{id}", Name: "updateIssue", handler: func(c *Controller) http.HandlerFunc { return c.updateIssue }},
	{Method: http.MethodPost, Path: "/commands", Name: "runCommand", handler: func(c *Controller) http.HandlerFunc { return c.runCommand }},

	{Method: http.MethodGet, Path: "/organizations", Name: "listOrganizations", handler: func(c *Controller) http.HandlerFunc { return c.listOrganizations }},

	{Method: http.MethodGet, Path: "/users", Name: "listUsers", handler: func(c *Controller) http.HandlerFunc { return c.listUsers }},

	{Method: http.MethodGet, Path: "/articles", Name: "listArticles", handler: func(c *Controller) http.HandlerFunc { return c.listArticles }},
	{Method: http.MethodGet, Path: "/articles/{id}", Name: "getArticle", handler: func(c *Controller) http.HandlerFunc { return c.getArticle }},
	{Method: http.MethodGet, Path: "/articles/{id}/childArticles", Name: "listArticleChild", handler: func(c *Controller) http.HandlerFunc { return c.listArticleChild }},
	{Method: http.MethodGet, Path: "/articles/{id}/attachments", Name: "listArticleAttachments", handler: func(c *Controller) http.HandlerFunc { return c.listArticleAttachments }},
}

// Handler registers every route on a new mux and wraps it with request id
// and access log middleware.
func (c *Controller) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, route := range Routes {
		mux.HandleFunc(route.Pattern(), route.handler(c))
	}
	return withRequestLog(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(repositories.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(repositories.RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(repositories.WithRequestID(r.Context(), requestID)))

		helpers.LogRequest(r.Method, r.URL.RequestURI(), rec.status, time.Since(start), requestID)
	})
}
