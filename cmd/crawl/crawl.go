// Package crawl implements a one-off crawl for trying out a site without
// persisting anything.
package crawl

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/logger"
	"github.com/sitewatch/sitewatch/internal/scheduler"
	"github.com/sitewatch/sitewatch/internal/templates"
)

const (
	maxTitleWidth = 60
	timeRounding  = time.Millisecond
)

// Command returns the crawl cobra command.
func Command() *cobra.Command {
	var (
		templateID string
		maxDepth   int
		maxPages   int
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site once and print what was found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], templateID, maxDepth, maxPages, quiet)
		},
	}

	cmd.Flags().StringVar(&templateID, "template", "", "template ID (suggested from the URL when empty)")
	cmd.Flags().IntVar(&maxDepth, "depth", 0, "maximum link depth (template default when 0)")
	cmd.Flags().IntVar(&maxPages, "pages", 0, "maximum pages to fetch (template default when 0)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress crawl logging")

	return cmd
}

// run performs the crawl and renders the result tables.
func run(cmd *cobra.Command, baseURL, templateID string, maxDepth, maxPages int, quiet bool) error {
	logLevel := "info"
	if quiet {
		logLevel = "error"
	}
	log, err := logger.New(&logger.Config{Level: logLevel, Encoding: "console"})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	if templateID != "" {
		if _, tmplErr := templates.ByID(templateID); tmplErr != nil {
			return fmt.Errorf("unknown template %q (known: %v)", templateID, templates.IDs())
		}
	}

	job := &domain.CrawlJob{
		BaseURL:    baseURL,
		TemplateID: templateID,
		MaxDepth:   maxDepth,
		MaxPages:   maxPages,
	}

	runner := scheduler.NewDefaultRunner(log)
	result, crawlErr := runner.Run(cmd.Context(), job, nil)
	if crawlErr != nil {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}

	renderPages(result.Pages)
	renderErrors(result.Errors)

	fmt.Printf("\n%d pages, %d errors in %s\n",
		result.Summary.URLsSuccessful,
		result.Summary.URLsFailed,
		result.Summary.Duration.Round(timeRounding),
	)

	if len(result.Pages) == 0 {
		return errors.New("no pages crawled")
	}
	return nil
}

// renderPages prints the crawled pages as a table.
func renderPages(pages []*domain.ScrapedPage) {
	if len(pages) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"URL", "Title", "Depth", "Words", "Links"})
	for _, page := range pages {
		title := page.Title
		if len(title) > maxTitleWidth {
			title = title[:maxTitleWidth] + "..."
		}
		t.AppendRow(table.Row{page.URL, title, page.Depth, page.WordCount, len(page.Links)})
	}
	t.Render()
}

// renderErrors prints the failed URLs as a table.
func renderErrors(errs domain.RunLogs) {
	if len(errs) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"URL", "Error", "Needs credentials"})
	for _, entry := range errs {
		t.AppendRow(table.Row{entry.URL, entry.Error, entry.NeedsCredentials})
	}
	t.Render()
}
