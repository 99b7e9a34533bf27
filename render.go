package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muhammadolammi/jobrecommender/internal/config"
	"github.com/muhammadolammi/jobrecommender/internal/recommender"
)

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	var asJSON bool
	var location string
	var rows int

	cmd := &cobra.Command{
		Use:   "analyze <resume-file>",
		Short: "Analyze a local resume and print matching LinkedIn jobs",
		Long: `Analyze a PDF, DOCX or plain-text resume and search LinkedIn jobs for it.

Example:
  jobrecommender analyze resume.pdf --location "Bengaluru" --rows 40
  jobrecommender analyze resume.docx --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read resume: %w", err)
			}
			pipeline, err := newPipeline(cmd.Context(), *cfg)
			if err != nil {
				return err
			}

			opts := searchOptions(cfg.Jobs)
			if location != "" {
				opts.Location = location
			}
			if rows != 0 {
				opts.Rows = rows
			}

			report, err := pipeline.Run(cmd.Context(), document, opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			writeReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&location, "location", "", "job search location (default from JOB_LOCATION)")
	cmd.Flags().IntVar(&rows, "rows", 0, "jobs to fetch per query, 10 to 100 (default from JOB_ROWS)")
	return cmd
}

func writeJSON(w io.Writer, report *recommender.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newRunResponse(report))
}

func writeReport(w io.Writer, report *recommender.Report) {
	section(w, "Resume summary", report.Analysis.Summary)
	section(w, "Skill gaps", report.Analysis.Gaps)
	section(w, "Roadmap", report.Analysis.Roadmap)

	fmt.Fprintf(w, "## Jobs (%s, queries: %s)\n\n", report.Search.Location, strings.Join(report.Search.Queries, ", "))
	if len(report.Search.Jobs) == 0 {
		fmt.Fprintln(w, "No jobs found.")
	}
	for _, job := range report.Search.Jobs {
		title := job.Title()
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(w, "- %s", title)
		if company := job.Company(); company != "" {
			fmt.Fprintf(w, " at %s", company)
		}
		if loc := job.Location(); loc != "" {
			fmt.Fprintf(w, " (%s)", loc)
		}
		fmt.Fprintln(w)
		if link := job.URL(); link != "" {
			fmt.Fprintf(w, "  %s\n", link)
		}
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintln(w, "\n## Warnings")
		fmt.Fprintln(w)
		for _, warn := range report.WarningMessages() {
			if warn.Query != "" {
				fmt.Fprintf(w, "- %s %q: %s\n", warn.Stage, warn.Query, warn.Message)
				continue
			}
			fmt.Fprintf(w, "- %s: %s\n", warn.Stage, warn.Message)
		}
	}
}

func section(w io.Writer, title, body string) {
	fmt.Fprintf(w, "## %s\n\n", title)
	if body == "" {
		fmt.Fprintln(w, "(not available)")
	} else {
		fmt.Fprintln(w, body)
	}
	fmt.Fprintln(w)
}
