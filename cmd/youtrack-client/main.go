package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"youtrack-client/internal/helpers"
	"youtrack-client/internal/services"
)

var (
	configFile string
	filterExpr string
	jsonOutput bool
	saveExport bool
	outputDir  string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "youtrack-client",
		Short: "YouTrack client - typed access to the YouTrack REST API",
		Long: `youtrack-client reads projects, issues, agile boards, users and articles
from YouTrack, reshapes them into typed records and can republish them as a
small REST API for other applications.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !helpers.IsTerminal() {
				color.NoColor = true
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&filterExpr, "filter", "f", "", "JMESPath expression applied to the JSON result")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	rootCmd.PersistentFlags().BoolVarP(&saveExport, "save", "s", false, "Save the result as JSON and markdown")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory for --save (default from config)")

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the YouTrack REST adapter",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Test the YouTrack and Hub connection",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "routes",
		Short: "List the routes exposed by serve",
		Args:  cobra.NoArgs,
		RunE:  runRoutes,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "organizations",
		Short: "List organizations",
		Args:  cobra.NoArgs,
		RunE:  runOrganizations,
	})

	var projectsCmd = &cobra.Command{
		Use:   "projects [id]",
		Short: "List projects or show a single project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProjects,
	}
	addPagination(projectsCmd, services.AllRecords)
	rootCmd.AddCommand(projectsCmd)

	var projectIssuesCmd = &cobra.Command{
		Use:   "project-issues <project>",
		Short: "List issues of a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectIssues,
	}
	addPagination(projectIssuesCmd, services.AllRecords)
	rootCmd.AddCommand(projectIssuesCmd)

	var projectArticlesCmd = &cobra.Command{
		Use:   "project-articles <project>",
		Short: "List articles of a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectArticles,
	}
	addPagination(projectArticlesCmd, services.AllRecords)
	rootCmd.AddCommand(projectArticlesCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "time-tracking <project>",
		Short: "Show the time tracking settings of a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runTimeTracking,
	})

	var issuesCmd = &cobra.Command{
		Use:   "issues",
		Short: "Search issues",
		Args:  cobra.NoArgs,
		RunE:  runIssues,
	}
	issuesCmd.Flags().StringP("query", "q", "", "YouTrack search query")
	addPagination(issuesCmd, services.AllRecords)
	rootCmd.AddCommand(issuesCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "issue <id>",
		Short: "Show a single issue",
		Args:  cobra.ExactArgs(1),
		RunE:  runIssue,
	})

	var updateIssueCmd = &cobra.Command{
		Use:   "update-issue <id>",
		Short: "Update issue fields",
		Long:  "Post a JSON body of issue fields, e.g. '{\"summary\": \"New title\"}'",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpdateIssue,
	}
	updateIssueCmd.Flags().String("body", "", "JSON body with the fields to update")
	updateIssueCmd.Flags().String("body-file", "", "File holding the JSON body")
	updateIssueCmd.Flags().Bool("mute", false, "Mute update notifications")
	rootCmd.AddCommand(updateIssueCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "command <command> <issue>...",
		Short: "Apply a YouTrack command to issues",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runCommand,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "agiles [id]",
		Short: "List agile boards or show a single board",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAgiles,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE:  runUsers,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "articles [id]",
		Short: "List articles or show a single article",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runArticles,
	})

	var articleChildrenCmd = &cobra.Command{
		Use:   "article-children <article>",
		Short: "List child articles",
		Args:  cobra.ExactArgs(1),
		RunE:  runArticleChildren,
	}
	addPagination(articleChildrenCmd, services.DefaultChildLimit)
	rootCmd.AddCommand(articleChildrenCmd)

	var articleAttachmentsCmd = &cobra.Command{
		Use:   "article-attachments <article>",
		Short: "List article attachments",
		Args:  cobra.ExactArgs(1),
		RunE:  runArticleAttachments,
	}
	addPagination(articleAttachmentsCmd, services.DefaultAttachmentLimit)
	rootCmd.AddCommand(articleAttachmentsCmd)

	if err := rootCmd.Execute(); err != nil {
		helpers.PrintError("Error: %v", err)
		os.Exit(1)
	}
}

func addPagination(cmd *cobra.Command, limit int) {
	cmd.Flags().Int("offset", 0, "Number of entities to skip")
	cmd.Flags().Int("limit", limit, "Maximum number of entities to return")
}
