package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"youtrack-client/internal/config"
	"youtrack-client/internal/controllers"
	"youtrack-client/internal/helpers"
	"youtrack-client/internal/models"
	"youtrack-client/internal/services"
)

type app struct {
	config  *config.Config
	service *services.YouTrackService
	export  *services.ExportService
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &app{
		config:  cfg,
		service: services.NewYouTrackService(cfg),
		export:  services.NewExportService(cfg),
	}, nil
}

// emit prints a result as JSON or as a readable listing and saves it when --save is set
func (a *app) emit(prefix, title string, data interface{}) error {
	if saveExport {
		if _, err := a.export.SaveExport(prefix, title, data, outputDir); err != nil {
			return err
		}
	}

	if jsonOutput || filterExpr != "" {
		filtered, err := helpers.ApplyFilter(data, filterExpr)
		if err != nil {
			return err
		}
		return helpers.PrintJSON(filtered)
	}

	switch d := data.(type) {
	case []*models.Record:
		a.export.DisplayRecords(title, d)
	case *models.Record:
		a.export.DisplayRecord(d)
	default:
		return helpers.PrintJSON(d)
	}
	return nil
}

func pageFlags(cmd *cobra.Command) (int, int) {
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")
	return offset, limit
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.config.Server.Addr
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           controllers.NewController(a.service).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		helpers.PrintTitle("Serving YouTrack adapter on %s", addr)
		helpers.PrintInfo("Upstream: %s", a.config.APIURL())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	helpers.PrintInfo("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	helpers.PrintSuccess("Server stopped")
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	helpers.PrintInfo("Testing YouTrack API at %s", a.config.APIURL())
	helpers.PrintInfo("Testing Hub API at %s", a.config.HubAPIURL())

	me, err := a.service.TestConnection(cmd.Context())
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	helpers.PrintSuccess("Authenticated as %s (%s)", me.String("fullName"), me.ID())
	return nil
}

func runRoutes(cmd *cobra.Command, args []string) error {
	helpers.PrintTitle("Routes")
	helpers.PrintSeparator()
	for _, route := range controllers.Routes {
		helpers.PrintInfo("%-5s %-40s %s", route.Method, route.Path, route.Name)
	}
	return nil
}

func runOrganizations(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	records, err := a.service.GetOrganizations(cmd.Context())
	if err != nil {
		return err
	}
	return a.emit("organizations", "Organizations", records)
}

func runProjects(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		record, err := a.service.GetProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return a.emit("project-"+args[0], "Project "+args[0], record)
	}

	offset, limit := pageFlags(cmd)
	records, err := a.service.GetProjects(cmd.Context(), offset, limit)
	if err != nil {
		return err
	}
	return a.emit("projects", "Projects", records)
}

func runProjectIssues(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	offset, limit := pageFlags(cmd)
	records, err := a.service.GetIssues(cmd.Context(), "project: "+args[0], offset, limit)
	if err != nil {
		return err
	}
	return a.emit("project-issues-"+args[0], "Issues in "+args[0], records)
}

func runProjectArticles(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	offset, limit := pageFlags(cmd)
	records, err := a.service.GetProjectArticles(cmd.Context(), args[0], offset, limit)
	if err != nil {
		return err
	}
	return a.emit("project-articles-"+args[0], "Articles in "+args[0], records)
}

func runTimeTracking(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	record, err := a.service.GetProjectTimeTrackingSettings(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.emit("time-tracking-"+args[0], "Time tracking in "+args[0], record)
}

func runIssues(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	query, _ := cmd.Flags().GetString("query")
	offset, limit := pageFlags(cmd)
	records, err := a.service.GetIssues(cmd.Context(), query, offset, limit)
	if err != nil {
		return err
	}
	return a.emit("issues", "Issues", records)
}

func runIssue(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	record, err := a.service.GetIssue(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.emit("issue-"+args[0], "Issue "+args[0], record)
}

func runUpdateIssue(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	var body models.Object
	rawBody, _ := cmd.Flags().GetString("body")
	bodyFile, _ := cmd.Flags().GetString("body-file")
	switch {
	case bodyFile != "":
		if err := helpers.LoadJSON(bodyFile, &body); err != nil {
			return fmt.Errorf("failed to load body: %w", err)
		}
	case rawBody != "":
		if err := json.Unmarshal([]byte(rawBody), &body); err != nil {
			return fmt.Errorf("invalid --body: %w", err)
		}
	default:
		return fmt.Errorf("one of --body or --body-file is required")
	}

	mute, _ := cmd.Flags().GetBool("mute")

	update, err := a.service.UpdateIssue(cmd.Context(), args[0], body, mute)
	if err != nil {
		return err
	}
	if update.Error != nil {
		helpers.PrintWarning("YouTrack rejected the update")
		return helpers.PrintJSON(update.Error)
	}

	helpers.PrintSuccess("Updated issue %s", update.Issue.ID())
	return a.emit("issue-"+args[0], "Issue "+args[0], update.Issue)
}

func runCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	issues := make([]models.Object, 0, len(args)-1)
	for _, id := range args[1:] {
		issues = append(issues, models.Object{"idReadable": id})
	}

	result, err := a.service.RunCommand(cmd.Context(), args[0], issues)
	if err != nil {
		return err
	}

	helpers.PrintSuccess("Applied %q to %d issues", args[0], len(issues))
	return a.emit("command", "Command "+args[0], result)
}

func runAgiles(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		record, err := a.service.GetAgile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return a.emit("agile-"+args[0], "Agile "+args[0], record)
	}

	records, err := a.service.GetAgiles(cmd.Context())
	if err != nil {
		return err
	}
	return a.emit("agiles", "Agile boards", records)
}

func runUsers(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	records, err := a.service.GetUsers(cmd.Context())
	if err != nil {
		return err
	}
	return a.emit("users", "Users", records)
}

func runArticles(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		record, err := a.service.GetArticle(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return a.emit("article-"+args[0], "Article "+args[0], record)
	}

	records, err := a.service.GetArticles(cmd.Context())
	if err != nil {
		return err
	}
	return a.emit("articles", "Articles", records)
}

func runArticleChildren(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	offset, limit := pageFlags(cmd)
	records, err := a.service.GetArticleChild(cmd.Context(), args[0], offset, limit)
	if err != nil {
		return err
	}
	return a.emit("article-children-"+args[0], "Children of "+args[0], records)
}

func runArticleAttachments(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	offset, limit := pageFlags(cmd)
	records, err := a.service.GetArticleAttachments(cmd.Context(), args[0], offset, limit)
	if err != nil {
		return err
	}
	return a.emit("article-attachments-"+args[0], "Attachments of "+args[0], records)
}
