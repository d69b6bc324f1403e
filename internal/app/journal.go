package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"warp/internal/database"
	"warp/internal/journal"
)

type recentLister interface {
	Recent(ctx context.Context, limit int) ([]database.EventRecord, error)
}

// RunJournal prints the most recent journaled hub events.
func RunJournal(args []string) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "config.json", "path to the JSON config file")
	dotenv := fs.String("env", ".env", "dotenv file applied before WARP_* variables")
	limit := fs.Int("limit", 20, "number of events to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, *dotenv)
	if err != nil {
		return err
	}
	if err := database.Init(cfg.DatabaseFile()); err != nil {
		return err
	}
	defer database.Close()

	svc := journal.NewService(nil, database.NewEventRepository())
	return printJournal(context.Background(), os.Stdout, svc, *limit)
}

func printJournal(ctx context.Context, w io.Writer, src recentLister, limit int) error {
	records, err := src.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "no events journaled")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(w, "%s %-24s %s\n", rec.At.UTC().Format(time.RFC3339), rec.Name, rec.Payload)
	}
	return nil
}
