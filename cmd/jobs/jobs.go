// Package jobs implements job inspection from the command line.
package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sitewatch/sitewatch/internal/config"
	"github.com/sitewatch/sitewatch/internal/database"
)

const listLimit = 100

// Command returns the jobs cobra command.
func Command(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect crawl jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List crawl jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return list(*cfgFile)
		},
	})

	return cmd
}

// list prints all jobs for the configured tenant as a table.
func list(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := database.NewJobRepository(db)
	jobs, err := repo.List(context.Background(), cfg.Crawler.Tenant, listLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Name", "Base URL", "Schedule", "Status", "Active", "Last run", "Next run"})
	for _, job := range jobs {
		t.AppendRow(table.Row{
			job.ID,
			job.Name,
			job.BaseURL,
			job.Schedule,
			job.Status,
			job.Active,
			formatTime(job.LastRun),
			formatTime(job.NextRun),
		})
	}
	t.Render()

	return nil
}

// formatTime renders a nullable timestamp.
func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
