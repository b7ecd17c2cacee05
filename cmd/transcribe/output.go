package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/audio-transcribe/client/internal/core/domain"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

const transcriptPreview = 48

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func printJobs(w io.Writer, format string, jobs []domain.Job) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if jobs == nil {
			jobs = []domain.Job{}
		}
		return enc.Encode(jobs)
	case formatYAML:
		return encodeYAML(w, jobs)
	case formatTable:
		if len(jobs) == 0 {
			_, err := fmt.Fprintln(w, "No jobs yet. Upload one with: transcribe upload <file>")
			return err
		}
		_, err := fmt.Fprintln(w, jobTable(jobs))
		return err
	}
	return fmt.Errorf("%w: unknown format %q", errUsage, format)
}

func printJob(w io.Writer, format string, job domain.Job) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	case formatYAML:
		return encodeYAML(w, job)
	case formatTable:
		fmt.Fprintf(w, "id:       %s\n", job.ID)
		fmt.Fprintf(w, "file:     %s\n", job.Filename)
		fmt.Fprintf(w, "status:   %s\n", job.Status)
		if job.ErrorMessage != "" {
			fmt.Fprintf(w, "error:    %s\n", job.ErrorMessage)
		}
		if job.Transcript != "" {
			fmt.Fprintf(w, "\n%s\n", job.Transcript)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown format %q", errUsage, format)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func jobTable(jobs []domain.Job) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "FILE", "STATUS", "TRANSCRIPT").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, j := range jobs {
		t.Row(j.ID, j.Filename, string(j.Status), preview(j))
	}
	return t.String()
}

func preview(j domain.Job) string {
	if j.Status == domain.JobStatusFailed {
		return j.ErrorMessage
	}
	text := strings.Join(strings.Fields(j.Transcript), " ")
	if r := []rune(text); len(r) > transcriptPreview {
		return string(r[:transcriptPreview-1]) + "…"
	}
	return text
}
