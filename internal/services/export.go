package services

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"youtrack-client/internal/config"
	"youtrack-client/internal/helpers"
	"youtrack-client/internal/models"
)

// ExportResult is the document written by SaveExport
type ExportResult struct {
	Title      string      `json:"title"`
	ExportedAt time.Time   `json:"exported_at"`
	BaseURL    string      `json:"base_url"`
	Count      int         `json:"count"`
	Data       interface{} `json:"data"`
}

// ExportService handles displaying and saving fetched records
type ExportService struct {
	config *config.Config
}

// NewExportService creates a new export service
func NewExportService(config *config.Config) *ExportService {
	return &ExportService{config: config}
}

// DisplayRecords displays records in a formatted way
func (s *ExportService) DisplayRecords(title string, records []*models.Record) {
	helpers.PrintTitle("%s (%d)", title, len(records))
	helpers.PrintSeparator()

	for _, record := range records {
		helpers.PrintInfo("%s  %s", record.ID(), recordLabel(record))
	}
}

// DisplayRecord displays a single record with its top-level fields
func (s *ExportService) DisplayRecord(record *models.Record) {
	helpers.PrintTitle("%s %s", record.Kind(), record.ID())
	helpers.PrintSeparator()

	fields := record.Fields()
	for _, name := range sortedKeys(fields) {
		helpers.PrintInfo("%s: %s", name, summarize(fields[name]))
	}

	if custom, ok := record.Get("custom"); ok {
		if m, ok := custom.(models.Object); ok && len(m) > 0 {
			helpers.PrintSeparator()
			helpers.PrintInfo("Custom fields:")
			for _, name := range sortedKeys(m) {
				helpers.PrintInfo("  • %s: %s", name, customValue(m[name]))
			}
		}
	}
}

// SaveExport saves fetched data as JSON plus a markdown summary
func (s *ExportService) SaveExport(prefix, title string, data interface{}, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = s.config.Output.Dir
	}
	if err := helpers.EnsureDir(outputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		Title:      title,
		ExportedAt: time.Now(),
		BaseURL:    s.config.YouTrack.BaseURL,
		Count:      countOf(data),
		Data:       data,
	}

	filename := helpers.GenerateOutputFilename(prefix, "json")
	jsonPath := helpers.GetOutputPath(outputDir, filename)
	if err := helpers.SaveJSON(result, jsonPath); err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}
	helpers.PrintSuccess("Saved export to: %s", jsonPath)

	summaryPath := helpers.GetOutputPath(outputDir, strings.TrimSuffix(filename, ".json")+".md")
	if err := s.saveSummary(result, summaryPath); err != nil {
		return "", fmt.Errorf("failed to save summary: %w", err)
	}
	helpers.PrintSuccess("Saved summary to: %s", summaryPath)

	return jsonPath, nil
}

// saveSummary saves a markdown summary of the export
func (s *ExportService) saveSummary(result *ExportResult, path string) error {
	var summary strings.Builder

	summary.WriteString(fmt.Sprintf("# %s\n\n", result.Title))
	summary.WriteString(fmt.Sprintf("**Source:** %s\n", result.BaseURL))
	summary.WriteString(fmt.Sprintf("**Exported:** %s\n", result.ExportedAt.Format(time.RFC3339)))
	summary.WriteString(fmt.Sprintf("**Records:** %d\n\n", result.Count))

	switch data := result.Data.(type) {
	case []*models.Record:
		for _, record := range data {
			summary.WriteString(fmt.Sprintf("- **%s** %s\n", record.ID(), recordLabel(record)))
		}
	case *models.Record:
		summary.WriteString(fmt.Sprintf("## %s\n\n", data.ID()))
		fields := data.Fields()
		for _, name := range sortedKeys(fields) {
			summary.WriteString(fmt.Sprintf("- %s: %s\n", name, summarize(fields[name])))
		}
	}

	return os.WriteFile(path, []byte(summary.String()), 0644)
}

// recordLabel picks the most descriptive text field of a record
func recordLabel(record *models.Record) string {
	for _, name := range []string{"summary", "name", "fullName", "shortName"} {
		if v := record.String(name); v != "" {
			return v
		}
	}
	return ""
}

func customValue(v interface{}) string {
	var value interface{}
	switch field := v.(type) {
	case models.Object:
		value = field["value"]
	case *models.Record:
		value, _ = field.Get("value")
	}

	switch val := value.(type) {
	case nil:
		return "-"
	case models.Object:
		for _, key := range []string{"presentation", "localizedName", "name"} {
			if s, ok := val[key].(string); ok && s != "" {
				return s
			}
		}
	case *models.Record:
		if label := recordLabel(val); label != "" {
			return label
		}
	}
	return summarize(value)
}

func summarize(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		if r := []rune(val); len(r) > 80 {
			return string(r[:77]) + "..."
		}
		return val
	case []interface{}:
		return fmt.Sprintf("[%d items]", len(val))
	case models.Object:
		return fmt.Sprintf("{%d fields}", len(val))
	case *models.Record:
		return fmt.Sprintf("%s %s", val.Kind(), val.ID())
	default:
		return fmt.Sprint(val)
	}
}

func countOf(data interface{}) int {
	switch d := data.(type) {
	case []*models.Record:
		return len(d)
	case []interface{}:
		return len(d)
	case nil:
		return 0
	default:
		return 1
	}
}

func sortedKeys(m models.Object) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
