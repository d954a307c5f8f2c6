package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/prscore/prscore/internal/domain"
)

// ReportSink receives one row per quality run. Appends from concurrent
// runs are safe because each run only ever adds a new row.
type ReportSink interface {
	Append(ctx context.Context, row []interface{}) error
}

// RunMeta carries the pull-request and workflow context logged with a row.
type RunMeta struct {
	Repo           string
	PRNumber       int
	PRTitle        string
	PRURL          string
	Author         string
	BaseBranch     string
	HeadBranch     string
	FilesChanged   int
	LinesAdded     int
	LinesRemoved   int
	Languages      []string
	WorkflowRunID  string
	WorkflowRunURL string
	ConfigJSON     string
	Error          string
}

// SheetsSink appends rows to a Google Sheet via the Sheets API.
type SheetsSink struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// NewSheetsSink creates a sink authenticated with service-account JSON
// credentials.
func NewSheetsSink(ctx context.Context, credentialsJSON []byte, spreadsheetID, sheetName string, logger *log.Logger) (*SheetsSink, error) {
	svc, err := sheets.NewService(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	if sheetName == "" {
		sheetName = "Raw PR Logs"
	}
	return &SheetsSink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

// EnsureHeaders writes the header row when the sheet is empty or stale.
func (s *SheetsSink) EnsureHeaders(ctx context.Context) error {
	readRange := fmt.Sprintf("'%s'!A1:BZ1", s.sheetName)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}
	if len(resp.Values) > 0 && headersMatch(resp.Values[0]) {
		return nil
	}
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, fmt.Sprintf("'%s'!A1", s.sheetName),
		&sheets.ValueRange{Values: [][]interface{}{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	s.logger.Printf("Headers set in %s", s.sheetName)
	return nil
}

// Append adds one row to the bottom of the sheet.
func (s *SheetsSink) Append(ctx context.Context, row []interface{}) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, fmt.Sprintf("'%s'!A:BZ", s.sheetName),
		&sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	s.logger.Printf("Row appended to %s", s.sheetName)
	return nil
}

func headersMatch(got []interface{}) bool {
	if len(got) != len(Headers) {
		return false
	}
	for i, v := range got {
		if str, ok := v.(string); !ok || str != Headers[i] {
			return false
		}
	}
	return true
}

// Headers is the sheet's column order. BuildRow must stay in sync with it.
var Headers = []string{
	// META
	"Timestamp", "Repo", "PR Number", "PR Title", "PR URL", "Author",
	"Base Branch", "Head Branch",
	// FILES
	"Files Changed Count", "Files Changed List", "Lines Added", "Lines Removed", "Languages",
	// CODE QUALITY RAW
	"Complexity Issues Count", "Complexity Issues Details",
	"Smells Issues Count", "Smells Issues Details",
	"Duplication %", "Duplication Details",
	// CODE QUALITY SCORES
	"Complexity Score", "Complexity Max", "Complexity Penalty",
	"Smells Score", "Smells Max", "Smells Penalty",
	"Duplication Score", "Duplication Max", "Duplication Penalty",
	"Code Quality Total", "Code Quality Max",
	// TEST HEALTH RAW
	"Tests Run", "Tests Passed", "Tests Failed", "Tests Skipped", "Test Failures Details",
	"Coverage Total Lines", "Coverage Covered Lines", "Coverage %", "Coverage By File",
	// TEST HEALTH SCORES
	"Coverage Score", "Coverage Max", "Test Results Score", "Test Results Max",
	"Test Health Total", "Test Health Max",
	// TEST PRESENCE RAW
	"Unit Tests Found", "Unit Tests Count", "Unit Test Files",
	"E2E Required", "E2E Found", "E2E Count",
	// TEST PRESENCE SCORES
	"Unit Tests Score", "Unit Tests Max", "E2E Score", "E2E Max",
	"Test Presence Total", "Test Presence Max",
	// FINAL
	"Final Score", "Threshold", "Status", "Label",
	// DEBUG
	"Workflow Run ID", "Workflow Run URL", "Config", "Errors",
}

// BuildRow flattens a report and its run context into one sheet row in
// Headers order. The row includes both raw inputs and computed scores so
// score regressions can be debugged from the sheet alone.
func BuildRow(r *domain.QualityReport, meta RunMeta, now time.Time) []interface{} {
	cq := r.Breakdown.CodeQuality
	th := r.Breakdown.TestHealth
	tp := r.Breakdown.TestPresence

	status := "FAIL"
	if r.Passed {
		status = "PASS"
	}
	e2eScore, e2eMax := "N/A", "N/A"
	if tp.E2E.Required {
		e2eScore = fmt.Sprintf("%g", tp.E2E.Earned)
		e2eMax = fmt.Sprintf("%g", tp.E2E.Max)
	}
	errNotes := strings.Join(r.Errors, "; ")
	if meta.Error != "" {
		errNotes = strings.TrimPrefix(errNotes+"; "+meta.Error, "; ")
	}

	return []interface{}{
		// META
		now.UTC().Format(time.RFC3339),
		meta.Repo,
		meta.PRNumber,
		truncateStr(meta.PRTitle, 200),
		meta.PRURL,
		meta.Author,
		meta.BaseBranch,
		meta.HeadBranch,
		// FILES
		meta.FilesChanged,
		listToStr(r.FilesAnalyzed, 1000),
		meta.LinesAdded,
		meta.LinesRemoved,
		strings.Join(meta.Languages, ", "),
		// CODE QUALITY RAW
		cq.Complexity.Count,
		issuesToStr(cq.Complexity.Issues),
		cq.Smells.Count,
		issuesToStr(cq.Smells.Issues),
		cq.Duplication.Percentage,
		clonesToStr(cq.Duplication.Clones),
		// CODE QUALITY SCORES
		cq.Complexity.Earned, cq.Complexity.Max, cq.Complexity.Penalty,
		cq.Smells.Earned, cq.Smells.Max, cq.Smells.Penalty,
		cq.Duplication.Earned, cq.Duplication.Max, cq.Duplication.Penalty,
		cq.Total, cq.Max,
		// TEST HEALTH RAW
		th.Results.Outcome.Run,
		th.Results.Outcome.Passed,
		th.Results.Outcome.Failed,
		th.Results.Outcome.Skipped,
		listToStr(th.Results.Outcome.Failures, 1000),
		th.Coverage.TotalLines,
		th.Coverage.CoveredLines,
		th.Coverage.Percentage,
		coverageToStr(th.Coverage.ByFile),
		// TEST HEALTH SCORES
		th.Coverage.Earned, th.Coverage.Max,
		th.Results.Earned, th.Results.Max,
		th.Total, th.Max,
		// TEST PRESENCE RAW
		yesNo(tp.Unit.Found),
		tp.Unit.Count,
		listToStr(tp.Unit.Files, 1000),
		yesNo(tp.E2E.Required),
		yesNo(tp.E2E.Found),
		tp.E2E.Count,
		// TEST PRESENCE SCORES
		tp.Unit.Earned, tp.Unit.Max,
		e2eScore, e2eMax,
		tp.Total, tp.Max,
		// FINAL
		r.FinalScore, r.Threshold, status, r.Label,
		// DEBUG
		meta.WorkflowRunID,
		meta.WorkflowRunURL,
		truncateStr(meta.ConfigJSON, 500),
		truncateStr(errNotes, 500),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func listToStr(items []string, maxLen int) string {
	return truncateStr(strings.Join(items, ", "), maxLen)
}

func issuesToStr(issues []domain.Diagnostic) string {
	parts := make([]string, 0, len(issues))
	for i, iss := range issues {
		if i >= 20 {
			parts = append(parts, fmt.Sprintf("...and %d more", len(issues)-20))
			break
		}
		file := iss.File
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}
		parts = append(parts, fmt.Sprintf("%s:%d - %s", file, iss.Line, truncateStr(iss.Message, 50)))
	}
	return truncateStr(strings.Join(parts, "; "), 2000)
}

func clonesToStr(clones []domain.DuplicatedPair) string {
	parts := make([]string, 0, len(clones))
	for i, c := range clones {
		if i >= 20 {
			parts = append(parts, fmt.Sprintf("...and %d more", len(clones)-20))
			break
		}
		parts = append(parts, fmt.Sprintf("%s <-> %s (%d lines)", c.FirstFile, c.SecondFile, c.Lines))
	}
	return truncateStr(strings.Join(parts, "; "), 2000)
}

func coverageToStr(samples []domain.CoverageSample) string {
	parts := make([]string, 0, len(samples))
	for i, s := range samples {
		if i >= 20 {
			parts = append(parts, fmt.Sprintf("...and %d more", len(samples)-20))
			break
		}
		file := s.File
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}
		parts = append(parts, fmt.Sprintf("%s:%.0f%%", file, s.Percentage))
	}
	return truncateStr(strings.Join(parts, ", "), 2000)
}
