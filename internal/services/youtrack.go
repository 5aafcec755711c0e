package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"youtrack-client/internal/config"
	"youtrack-client/internal/models"
	"youtrack-client/internal/repositories"
)

// Pagination defaults. AllRecords is large enough that YouTrack returns
// every entity in one page.
const (
	AllRecords             = 5065550
	DefaultChildLimit      = 50
	DefaultAttachmentLimit = 500
)

// IssueUpdate is the outcome of UpdateIssue. Exactly one of Issue and Error
// is set: Error holds the raw payload when YouTrack answers with an "error"
// key instead of the updated issue.
type IssueUpdate struct {
	Issue *models.Record
	Error models.Object
}

// YouTrackService exposes one method per YouTrack resource. Each method
// issues exactly one request. It holds no mutable state and is safe for
// concurrent use.
type YouTrackService struct {
	repo        *repositories.YouTrackRepository
	transformer *models.Transformer
}

// NewYouTrackService creates a new YouTrack service
func NewYouTrackService(cfg *config.Config) *YouTrackService {
	return NewYouTrackServiceWith(
		repositories.NewYouTrackRepository(cfg),
		models.NewTransformer(cfg.EntityMappings(), models.NewRegistry()),
	)
}

// NewYouTrackServiceWith creates a service over an existing repository and transformer
func NewYouTrackServiceWith(repo *repositories.YouTrackRepository, transformer *models.Transformer) *YouTrackService {
	return &YouTrackService{
		repo:        repo,
		transformer: transformer,
	}
}

// GetOrganizations lists organizations
func (s *YouTrackService) GetOrganizations(ctx context.Context) ([]*models.Record, error) {
	return s.list(ctx, config.EntityOrganization, "/admin/organizations", nil)
}

// GetProjects lists projects
func (s *YouTrackService) GetProjects(ctx context.Context, offset, limit int) ([]*models.Record, error) {
	return s.list(ctx, config.EntityProject, "/admin/projects", page(nil, offset, limit))
}

// GetProject reads a single project
func (s *YouTrackService) GetProject(ctx context.Context, id string) (*models.Record, error) {
	return s.single(ctx, config.EntityProject, "/admin/projects/"+url.PathEscape(id))
}

// GetProjectTimeTrackingSettings reads the time tracking settings of a project
func (s *YouTrackService) GetProjectTimeTrackingSettings(ctx context.Context, projectID string) (*models.Record, error) {
	return s.single(ctx, config.EntityProjectTimeTrackingSettings,
		"/admin/projects/"+url.PathEscape(projectID)+"/timeTrackingSettings")
}

// GetProjectArticles lists the articles of a project
func (s *YouTrackService) GetProjectArticles(ctx context.Context, projectID string, offset, limit int) ([]*models.Record, error) {
	return s.list(ctx, config.EntityArticle,
		"/admin/projects/"+url.PathEscape(projectID)+"/articles", page(nil, offset, limit))
}

// GetIssues lists issues matching a YouTrack search query. An empty query
// is not sent.
func (s *YouTrackService) GetIssues(ctx context.Context, query string, offset, limit int) ([]*models.Record, error) {
	q := repositories.Query{}.Set("query", query)
	return s.list(ctx, config.EntityIssue, "/issues", page(q, offset, limit))
}

// GetIssue reads a single issue
func (s *YouTrackService) GetIssue(ctx context.Context, id string) (*models.Record, error) {
	return s.single(ctx, config.EntityIssue, "/issues/"+url.PathEscape(id))
}

// UpdateIssue posts field updates to an issue
func (s *YouTrackService) UpdateIssue(ctx context.Context, id string, body models.Object, mute bool) (*IssueUpdate, error) {
	kind, mapping, err := s.entity(config.EntityIssue)
	if err != nil {
		return nil, err
	}

	query := repositories.Query{}.
		Set("fields", mapping.Detail()).
		Set("muteUpdateNotifications", strconv.FormatBool(mute))

	data, err := s.repo.Post(ctx, repositories.BaseAPI, "/issues/"+url.PathEscape(id), query, body)
	if err != nil {
		return nil, fmt.Errorf("failed to update issue %s: %w", id, err)
	}

	obj, ok := data.(models.Object)
	if !ok {
		return nil, fmt.Errorf("unexpected response for issue %s: %T", id, data)
	}

	if _, hasError := obj["error"]; hasError {
		return &IssueUpdate{Error: obj}, nil
	}

	return &IssueUpdate{Issue: s.transformer.Wrap(kind, obj)}, nil
}

// RunCommand applies a YouTrack command to a list of issues. Issues are
// passed as YouTrack expects them, e.g. {"idReadable": "DM-3"}. The
// response is returned as decoded, without any record wrapping.
func (s *YouTrackService) RunCommand(ctx context.Context, command string, issues []models.Object) (interface{}, error) {
	if issues == nil {
		issues = []models.Object{}
	}
	body := models.Object{
		"query":  command,
		"issues": issues,
	}

	data, err := s.repo.Post(ctx, repositories.BaseAPI, "/commands", nil, body)
	if err != nil {
		return nil, fmt.Errorf("failed to run command %q: %w", command, err)
	}
	return data, nil
}

// GetAgiles lists agile boards
func (s *YouTrackService) GetAgiles(ctx context.Context) ([]*models.Record, error) {
	return s.list(ctx, config.EntityAgile, "/agiles", nil)
}

// GetAgile reads a single agile board
func (s *YouTrackService) GetAgile(ctx context.Context, id string) (*models.Record, error) {
	return s.single(ctx, config.EntityAgile, "/agiles/"+url.PathEscape(id))
}

// GetUsers lists users
func (s *YouTrackService) GetUsers(ctx context.Context) ([]*models.Record, error) {
	return s.list(ctx, config.EntityUser, "/users", nil)
}

// GetArticles lists articles
func (s *YouTrackService) GetArticles(ctx context.Context) ([]*models.Record, error) {
	return s.list(ctx, config.EntityArticle, "/articles", nil)
}

// GetArticle reads a single article
func (s *YouTrackService) GetArticle(ctx context.Context, id string) (*models.Record, error) {
	return s.single(ctx, config.EntityArticle, "/articles/"+url.PathEscape(id))
}

// GetArticleChild lists the child articles of an article
func (s *YouTrackService) GetArticleChild(ctx context.Context, articleID string, offset, limit int) ([]*models.Record, error) {
	return s.list(ctx, config.EntityArticle,
		"/articles/"+url.PathEscape(articleID)+"/childArticles", page(nil, offset, limit))
}

// GetArticleAttachments lists the attachments of an article
func (s *YouTrackService) GetArticleAttachments(ctx context.Context, articleID string, offset, limit int) ([]*models.Record, error) {
	return s.list(ctx, config.EntityAttachment,
		"/articles/"+url.PathEscape(articleID)+"/attachments", page(nil, offset, limit))
}

// TestConnection checks that the token is accepted by both the YouTrack
// API and the Hub API and returns the authenticated user.
func (s *YouTrackService) TestConnection(ctx context.Context) (*models.Record, error) {
	kind, mapping, err := s.entity(config.EntityUser)
	if err != nil {
		return nil, err
	}
	query := repositories.Query{}.Set("fields", mapping.Detail())

	data, err := s.repo.Get(ctx, repositories.BaseAPI, "/users/me", query)
	if err != nil {
		return nil, fmt.Errorf("YouTrack API check failed: %w", err)
	}

	if _, err := s.repo.Get(ctx, repositories.BaseHub, "/users/me", repositories.Query{}.Set("fields", "id,login")); err != nil {
		return nil, fmt.Errorf("Hub API check failed: %w", err)
	}

	obj, _ := data.(models.Object)
	return s.transformer.Wrap(kind, obj), nil
}

func (s *YouTrackService) entity(name string) (models.Kind, config.EntityMapping, error) {
	mapping, ok := s.transformer.Mappings().Lookup(name)
	if !ok {
		return models.Kind{}, config.EntityMapping{}, fmt.Errorf("no mapping configured for entity %q", name)
	}
	kind, err := s.transformer.KindFor(name)
	if err != nil {
		return models.Kind{}, config.EntityMapping{}, err
	}
	return kind, mapping, nil
}

func (s *YouTrackService) list(ctx context.Context, entity, path string, query repositories.Query) ([]*models.Record, error) {
	kind, mapping, err := s.entity(entity)
	if err != nil {
		return nil, err
	}

	query = append(repositories.Query{{Key: "fields", Value: mapping.Fields}}, query...)

	data, err := s.repo.Get(ctx, repositories.BaseAPI, path, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entity, err)
	}

	list, ok := data.([]interface{})
	if !ok && data != nil {
		return nil, fmt.Errorf("unexpected response for %s list: %T", entity, data)
	}

	return s.transformer.WrapAll(kind, list), nil
}

func (s *YouTrackService) single(ctx context.Context, entity, path string) (*models.Record, error) {
	kind, mapping, err := s.entity(entity)
	if err != nil {
		return nil, err
	}

	query := repositories.Query{}.Set("fields", mapping.Detail())

	data, err := s.repo.Get(ctx, repositories.BaseAPI, path, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", entity, err)
	}

	obj, ok := data.(models.Object)
	if !ok {
		return nil, fmt.Errorf("unexpected response for %s: %T", entity, data)
	}

	return s.transformer.Wrap(kind, obj), nil
}

func page(q repositories.Query, offset, limit int) repositories.Query {
	return q.
		Set("$skip", strconv.Itoa(offset)).
		Set("$top", strconv.Itoa(limit))
}
