package main

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitHistoryDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id             TEXT PRIMARY KEY,
		mode           TEXT NOT NULL,
		total_files    INTEGER NOT NULL,
		fallback_count INTEGER NOT NULL DEFAULT 0,
		zero_signal    INTEGER NOT NULL DEFAULT 0,
		input_tokens   INTEGER NOT NULL DEFAULT 0,
		output_tokens  INTEGER NOT NULL DEFAULT 0,
		report_path    TEXT DEFAULT '',
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON analysis_runs(created_at);

	CREATE TABLE IF NOT EXISTS run_files (
		run_id        TEXT NOT NULL,
		path          TEXT NOT NULL,
		content_type  TEXT NOT NULL,
		source        TEXT NOT NULL,
		zero_signal   INTEGER NOT NULL DEFAULT 0,
		proposed_tags TEXT DEFAULT '',
		PRIMARY KEY (run_id, path)
	);
	CREATE INDEX IF NOT EXISTS idx_run_files_run ON run_files(run_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

// SaveRun persists one run summary and its per-file outcomes.
func SaveRun(db *sql.DB, summary RunSummary, report AnalysisReport) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO analysis_runs (id, mode, total_files, fallback_count, zero_signal, input_tokens, output_tokens, report_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.Mode, summary.TotalFiles, summary.FallbackCount,
		summary.ZeroSignalCount, summary.Usage.InputTokens, summary.Usage.OutputTokens, summary.ReportPath,
	); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO run_files (run_id, path, content_type, source, zero_signal, proposed_tags)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range report.Files {
		zero := 0
		if f.ZeroSignal {
			zero = 1
		}
		if _, err := stmt.Exec(
			summary.RunID, f.Path, string(f.ContentType), f.Source, zero, strings.Join(f.ProposedTags, ","),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type RunRecord struct {
	ID            string
	Mode          string
	TotalFiles    int
	FallbackCount int
	ZeroSignal    int
	InputTokens   int64
	OutputTokens  int64
	ReportPath    string
	CreatedAt     time.Time
}

func ListRuns(db *sql.DB, limit int) ([]RunRecord, error) {
	rows, err := db.Query(
		`SELECT id, mode, total_files, fallback_count, zero_signal, input_tokens, output_tokens, report_path, created_at
		 FROM analysis_runs
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.ID, &r.Mode, &r.TotalFiles, &r.FallbackCount, &r.ZeroSignal,
			&r.InputTokens, &r.OutputTokens, &r.ReportPath, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRunFiles returns a run's per-file outcomes ordered by path.
func GetRunFiles(db *sql.DB, runID string) ([]FileRecommendation, error) {
	rows, err := db.Query(
		`SELECT path, content_type, source, zero_signal, proposed_tags
		 FROM run_files WHERE run_id = ? ORDER BY path`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FileRecommendation
	for rows.Next() {
		var f FileRecommendation
		var ct, tags string
		var zero int
		if err := rows.Scan(&f.Path, &ct, &f.Source, &zero, &tags); err != nil {
			return nil, err
		}
		f.ContentType = ContentType(ct)
		f.ZeroSignal = zero == 1
		if tags != "" {
			f.ProposedTags = strings.Split(tags, ",")
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
