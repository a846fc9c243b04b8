package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))

	cfg := LoadConfig()

	if cfg.Mode != "heuristic" {
		t.Fatalf("expected heuristic default mode, got %q", cfg.Mode)
	}
	if cfg.LLMModel != defaultAnthropicModel {
		t.Fatalf("unexpected model default: %q", cfg.LLMModel)
	}
	if cfg.AgentBatchSize != 25 || cfg.AgentMaxInFlight != 4 || cfg.AgentTimeoutSecs != 60 {
		t.Fatalf("unexpected agent defaults: %+v", cfg)
	}
	if cfg.MinTagFrequency != 2 {
		t.Fatalf("unexpected min_tag_frequency default: %d", cfg.MinTagFrequency)
	}
	if cfg.ConsolidationOverlap != 0 {
		t.Fatalf("consolidation_overlap should default to derived (0), got %d", cfg.ConsolidationOverlap)
	}
	if cfg.HistoryDBPath != "./frontmatters.db" {
		t.Fatalf("unexpected db path default: %q", cfg.HistoryDBPath)
	}
	if cfg.ReportOutputDir != "./reports" {
		t.Fatalf("unexpected report output dir default: %q", cfg.ReportOutputDir)
	}
	if cfg.CorpusName != "Documentation" {
		t.Fatalf("unexpected corpus name default: %q", cfg.CorpusName)
	}
	if cfg.WatchSchedule != "0 6 * * *" {
		t.Fatalf("unexpected watch schedule default: %q", cfg.WatchSchedule)
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
mode: "agent"
anthropic_api_key: "yaml-key"
llm_model: "yaml-model"
agent_batch_size: 10
min_tag_frequency: 3
corpus_name: "YAML Vault"
report_output_dir: "/tmp/yaml-reports"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("AGENT_BATCH_SIZE", "7")

	cfg := LoadConfig()

	if cfg.Mode != "agent" || cfg.AnthropicAPIKey != "yaml-key" {
		t.Fatalf("yaml values not loaded: %+v", cfg)
	}
	if cfg.LLMModel != "env-model" {
		t.Fatalf("env must override yaml, got %q", cfg.LLMModel)
	}
	if cfg.AgentBatchSize != 7 {
		t.Fatalf("env must override yaml batch size, got %d", cfg.AgentBatchSize)
	}
	if cfg.MinTagFrequency != 3 {
		t.Fatalf("yaml min_tag_frequency lost: %d", cfg.MinTagFrequency)
	}
	if cfg.CorpusName != "YAML Vault" || cfg.ReportOutputDir != "/tmp/yaml-reports" {
		t.Fatalf("yaml values lost: %+v", cfg)
	}
}

func TestLoadKeywordTableOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	content := `
labels:
  - label: "blog"
    keywords: ["essay"]
dir_tags: ["essays"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write keywords: %v", err)
	}

	table, err := LoadKeywordTable(path)
	if err != nil {
		t.Fatalf("LoadKeywordTable failed: %v", err)
	}
	if len(table.Labels) != 1 || table.Labels[0].Keywords[0] != "essay" {
		t.Fatalf("override labels not applied: %+v", table.Labels)
	}
	if len(table.DirTags) != 1 || table.DirTags[0] != "essays" {
		t.Fatalf("override dir tags not applied: %v", table.DirTags)
	}
	// Sections left empty fall back to the built-in data.
	def := DefaultKeywordTable()
	if len(table.NameTags) != len(def.NameTags) || len(table.TagHints) != len(def.TagHints) {
		t.Fatalf("empty sections must fall back to defaults")
	}
}

func TestLoadKeywordTableRejectsUnknownLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	content := `
labels:
  - label: "novel"
    keywords: ["chapter"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write keywords: %v", err)
	}
	if _, err := LoadKeywordTable(path); err == nil {
		t.Fatalf("expected unknown label error")
	}
}
