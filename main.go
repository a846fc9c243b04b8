package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
)

func main() {
	var (
		flagOutput  string
		flagMode    string
		flagMinFreq int
	)

	rootCmd := &cobra.Command{
		Use:           "frontmatters",
		Short:         "Analyze the organization of a markdown documentation tree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setup := func() (Config, *Engine, *sql.DB) {
		cfg := LoadConfig()
		if flagMode != "" {
			cfg.Mode = flagMode
			if cfg.Mode == "agent" && cfg.AnthropicAPIKey == "" {
				log.Fatalf("anthropic_api_key is required when mode=agent")
			}
		}
		if flagMinFreq > 0 {
			cfg.MinTagFrequency = flagMinFreq
		}
		engine, err := NewEngine(cfg)
		if err != nil {
			log.Fatalf("Failed to init engine: %v", err)
		}
		db, err := InitHistoryDB(cfg.HistoryDBPath)
		if err != nil {
			log.Fatalf("Failed to init history database: %v", err)
		}
		return cfg, engine, db
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <tree.json>",
		Short: "Run one analysis over a tree snapshot and write the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, engine, db := setup()
			defer db.Close()

			report, summary, err := engine.AnalyzeToFile(cmd.Context(), args[0], flagOutput)
			if err != nil {
				return err
			}
			if err := SaveRun(db, summary, report); err != nil {
				log.Printf("history save error: %v", err)
			}
			if cfg.SlackBotToken != "" {
				PostRunSummary(slack.New(cfg.SlackBotToken), cfg.SlackChannelID, summary, report)
			}
			fmt.Println(FormatRunSummary(summary, report))
			return nil
		},
	}
	analyzeCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "report output directory (overrides config)")

	watchCmd := &cobra.Command{
		Use:   "watch <tree.json>",
		Short: "Re-run the analysis on the configured cron schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, engine, db := setup()
			defer db.Close()

			var api *slack.Client
			if cfg.SlackBotToken != "" {
				api = slack.New(cfg.SlackBotToken)
			}
			err := RunWatchLoop(cmd.Context(), engine, db, api, args[0])
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent analysis runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			db, err := InitHistoryDB(cfg.HistoryDBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := ListRuns(db, 20)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  mode=%s files=%d fallbacks=%d tokens=%d %s\n",
					r.CreatedAt.Format("2006-01-02 15:04"), r.ID, r.Mode,
					r.TotalFiles, r.FallbackCount, r.InputTokens+r.OutputTokens, r.ReportPath)
			}
			return nil
		},
	}

	for _, c := range []*cobra.Command{analyzeCmd, watchCmd} {
		c.Flags().StringVar(&flagMode, "mode", "", "analysis mode: heuristic or agent (overrides config)")
		c.Flags().IntVar(&flagMinFreq, "min-freq", 0, "minimum tag frequency for statistics (overrides config)")
	}
	rootCmd.AddCommand(analyzeCmd, watchCmd, runsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
