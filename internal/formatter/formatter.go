// package formatter provides functions to export scan results and upload history to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"ibup/internal/models"
	"ibup/internal/shared"
)

// ExportCandidatesToCSV converts scanned candidates to CSV format with columns: Path, Size, Checksum
func ExportCandidatesToCSV(candidates []models.Candidate) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Path", "Size", "Checksum"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, candidate := range candidates {
		record := []string{
			candidate.Path,
			strconv.FormatInt(candidate.Size, 10),
			candidate.Checksum,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportCandidatesToMarkdown converts scanned candidates to a Markdown listing
func ExportCandidatesToMarkdown(title string, candidates []models.Candidate) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Files**: %d\n\n", len(candidates)))

	for i, candidate := range candidates {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, candidate.Path, shared.FormatSize(candidate.Size)))
	}

	return buf.Bytes(), nil
}

// ExportCandidatesToText converts scanned candidates to plain text format
func ExportCandidatesToText(candidates []models.Candidate) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Files: %d\n\n", len(candidates)))
	for i, candidate := range candidates {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, candidate.Path))
	}

	return buf.Bytes(), nil
}

// ExportHistoryToCSV converts history rows to CSV format with columns: Time, Status, Path, Checksum, TrackID, Detail
func ExportHistoryToCSV(rows []*models.PersistedUpload) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Time", "Status", "Path", "Checksum", "TrackID", "Detail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.CreatedAt().Format("2006-01-02 15:04:05"),
			string(row.Status()),
			row.Path(),
			row.Checksum(),
			strconv.FormatInt(row.TrackID(), 10),
			row.Detail(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteExport writes exported data to the given path, or stdout when path is empty
func WriteExport(data []byte, path string) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
