package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"youtrack-client/internal/models"
	"youtrack-client/internal/repositories"
	"youtrack-client/internal/services"
)

// Pagination defaults for list routes
const (
	defaultOffset = 0
	defaultLimit  = 50
)

// Client is the subset of the YouTrack service the routes call into
type Client interface {
	GetOrganizations(ctx context.Context) ([]*models.Record, error)
	GetProjects(ctx context.Context, offset, limit int) ([]*models.Record, error)
	GetProject(ctx context.Context, id string) (*models.Record, error)
	GetProjectTimeTrackingSettings(ctx context.Context, projectID string) (*models.Record, error)
	GetProjectArticles(ctx context.Context, projectID string, offset, limit int) ([]*models.Record, error)
	GetIssues(ctx context.Context, query string, offset, limit int) ([]*models.Record, error)
	GetIssue(ctx context.Context, id string) (*models.Record, error)
	UpdateIssue(ctx context.Context, id string, body models.Object, mute bool) (*services.IssueUpdate, error)
	RunCommand(ctx context.Context, command string, issues []models.Object) (interface{}, error)
	GetAgiles(ctx context.Context) ([]*models.Record, error)
	GetAgile(ctx context.Context, id string) (*models.Record, error)
	GetUsers(ctx context.Context) ([]*models.Record, error)
	GetArticles(ctx context.Context) ([]*models.Record, error)
	GetArticle(ctx context.Context, id string) (*models.Record, error)
	GetArticleChild(ctx context.Context, articleID string, offset, limit int) ([]*models.Record, error)
	GetArticleAttachments(ctx context.Context, articleID string, offset, limit int) ([]*models.Record, error)
}

// Controller maps HTTP routes onto YouTrack service calls
type Controller struct {
	client Client
}

// NewController creates a new controller
func NewController(client Client) *Controller {
	return &Controller{client: client}
}

func (c *Controller) listOrganizations(w http.ResponseWriter, r *http.Request) {
	records, err := c.client.GetOrganizations(r.Context())
	respond(w, records, err)
}

func (c *Controller) listProjects(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := pagination(w, r, services.AllRecords)
	if !ok {
		return
	}
	records, err := c.client.GetProjects(r.Context(), offset, limit)
	respond(w, records, err)
}

func (c *Controller) getProject(w http.ResponseWriter, r *http.Request) {
	record, err := c.client.GetProject(r.Context(), r.PathValue("id"))
	respond(w, record, err)
}

func (c *Controller) listProjectIssues(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := pagination(w, r, services.AllRecords)
	if !ok {
		return
	}
	query := fmt.Sprintf("project: %s", r.PathValue("id"))
	records, err := c.client.GetIssues(r.Context(), query, offset, limit)
	respond(w, records, err)
}

func (c *Controller) listProjectArticles(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := pagination(w, r, services.AllRecords)
	if !ok {
		return
	}
	records, err := c.client.GetProjectArticles(r.Context(), r.PathValue("id"), offset, limit)
	respond(w, records, err)
}

func (c *Controller) getProjectTimeTrackingSettings(w http.ResponseWriter, r *http.Request) {
	record, err := c.client.GetProjectTimeTrackingSettings(r.Context(), r.PathValue("id"))
	respond(w, record, err)
}

func (c *Controller) listAgiles(w http.ResponseWriter, r *http.Request) {
	records, err := c.client.GetAgiles(r.Context())
	respond(w, records, err)
}

func (c *Controller) getAgile(w http.ResponseWriter, r *http.Request) {
	record, err := c.client.GetAgile(r.Context(), r.PathValue("id"))
	respond(w, record, err)
}

func (c *Controller) listIssues(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := pagination(w, r, defaultLimit)
	if !ok {
		return
	}
	records, err := c.client.GetIssues(r.Context(), r.URL.Query().Get("query"), offset, limit)
	respond(w, records, err)
}

func (c *Controller) getIssue(w http.ResponseWriter, r *http.Request) {
	record, err := c.client.GetIssue(r.Context(), r.PathValue("id"))
	respond(w, record, err)
}

func (c *Controller) updateIssue(w http.ResponseWriter, r *http.Request) {
	var body models.Object
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Object{"error": "invalid JSON body: " + err.Error()})
		return
	}

	mute, _ := strconv.ParseBool(r.URL.Query().Get("mute"))

	update, err := c.client.UpdateIssue(r.Context(), r.PathValue("id"), body, mute)
	if err != nil {
		respond(w, nil, err)
		return
	}
	if update.Error != nil {
		respond(w, update.Error, nil)
		return
	}
	respond(w, update.Issue, nil)
}

type commandRequest struct {
	Query  string          `json:"query"`
	Issues []models.Object `json:"issues"`
}

func (c *Controller) runCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Object{"error": "invalid JSON body: " + err.Error()})
		return
	}

	result, err := c.client.RunCommand(r.Context(), req.Query, req.Issues)
	respond(w, result, err)
}

func (c *Controller) listUsers(w http.ResponseWriter, r *http.Request) {
	records, err := c.client.GetUsers(r.Context())
	respond(w, records, err)
}

func (c *Controller) listArticles(w http.ResponseWriter, r *http.Request) {
	records, err := c.client.GetArticles(r.Context())
	respond(w, records, err)
}

func (c *Controller) getArticle(w http.ResponseWriter, r *http.Request) {
	record, err := c.client.GetArticle(r.Context(), r.PathValue("id"))
	respond(w, record, err)
}

func (c *Controller) listArticleChild(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := pagination(w, r, services.DefaultChildLimit)
	if !ok {
		return
	}
	records, err := c.client.GetArticleChild(r.Context(), r.PathValue("id"), offset, limit)
	respond(w, records, err)
}

func (c *Controller) listArticleAttachments(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := pagination(w, r, services.DefaultAttachmentLimit)
	if !ok {
		return
	}
	records, err := c.client.GetArticleAttachments(r.Context(), r.PathValue("id"), offset, limit)
	respond(w, records, err)
}

// pagination reads offset and limit query parameters, falling back to limit
// when none is given. It writes a 400 and reports false when either is not
// an integer.
func pagination(w http.ResponseWriter, r *http.Request, limit int) (int, int, bool) {
	offset, err := intParam(r, "offset", defaultOffset)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Object{"error": err.Error()})
		return 0, 0, false
	}
	limit, err = intParam(r, "limit", limit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Object{"error": err.Error()})
		return 0, 0, false
	}
	return offset, limit, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// respond writes the service result. YouTrack errors are passed through
// with their original status and body.
func respond(w http.ResponseWriter, data interface{}, err error) {
	if err == nil {
		if records, ok := data.([]*models.Record); ok && records == nil {
			data = []*models.Record{}
		}
		writeJSON(w, http.StatusOK, data)
		return
	}

	var apiErr *repositories.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ContentType != "" {
			w.Header().Set("Content-Type", apiErr.ContentType)
		}
		w.WriteHeader(apiErr.StatusCode)
		_, _ = w.Write(apiErr.Body)
		return
	}

	status := http.StatusBadGateway
	if errors.Is(err, context.Canceled) {
		status = http.StatusRequestTimeout
	}
	writeJSON(w, status, models.Object{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
