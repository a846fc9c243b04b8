package main

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// RunWatchLoop re-analyzes the snapshot on a cron schedule until ctx is
// cancelled. The schedule is a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
// Examples: "0 6 * * *" (daily 6am), "0 6 * * 1" (Mondays 6am).
func RunWatchLoop(ctx context.Context, engine *Engine, db *sql.DB, api *slack.Client, snapshotPath string) error {
	cfg := engine.cfg
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(strings.TrimSpace(cfg.WatchSchedule))
	if err != nil {
		return err
	}
	log.Printf("watch scheduled (cron: %s) snapshot=%s", cfg.WatchSchedule, snapshotPath)

	for {
		now := time.Now()
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Printf("Next analysis at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		report, summary, err := engine.AnalyzeToFile(ctx, snapshotPath, "")
		if err != nil {
			log.Printf("watch analysis error: %v", err)
			continue
		}
		if db != nil {
			if err := SaveRun(db, summary, report); err != nil {
				log.Printf("watch history save error: %v", err)
			}
		}
		PostRunSummary(api, cfg.SlackChannelID, summary, report)
	}
}
