package main

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode string `yaml:"mode"`

	LLMModel          string `yaml:"llm_model"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`
	AgentBatchSize    int    `yaml:"agent_batch_size"`
	AgentMaxInFlight  int    `yaml:"agent_max_in_flight"`
	AgentTimeoutSecs  int    `yaml:"agent_timeout_secs"`
	AgentMaxRetries   int    `yaml:"agent_max_retries"`
	AgentExcerptChars int    `yaml:"agent_excerpt_max_chars"`

	MinTagFrequency      int     `yaml:"min_tag_frequency"`
	ConsolidationOverlap int     `yaml:"consolidation_overlap"`
	RuleMinRecords       int     `yaml:"rule_min_records"`
	RuleSignalFraction   float64 `yaml:"rule_signal_fraction"`
	KeywordsPath         string  `yaml:"keywords_path"`

	HistoryDBPath   string `yaml:"history_db_path"`
	ReportOutputDir string `yaml:"report_output_dir"`
	CorpusName      string `yaml:"corpus_name"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	WatchSchedule string `yaml:"watch_schedule"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.Mode, "ANALYSIS_MODE")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverrideInt(&cfg.AgentBatchSize, "AGENT_BATCH_SIZE")
	envOverrideInt(&cfg.AgentMaxInFlight, "AGENT_MAX_IN_FLIGHT")
	envOverrideInt(&cfg.AgentTimeoutSecs, "AGENT_TIMEOUT_SECS")
	envOverrideInt(&cfg.AgentMaxRetries, "AGENT_MAX_RETRIES")
	envOverrideInt(&cfg.AgentExcerptChars, "AGENT_EXCERPT_MAX_CHARS")
	envOverrideInt(&cfg.MinTagFrequency, "MIN_TAG_FREQUENCY")
	envOverrideInt(&cfg.ConsolidationOverlap, "CONSOLIDATION_OVERLAP")
	envOverrideInt(&cfg.RuleMinRecords, "RULE_MIN_RECORDS")
	envOverrideFloat(&cfg.RuleSignalFraction, "RULE_SIGNAL_FRACTION")
	envOverride(&cfg.KeywordsPath, "KEYWORDS_PATH")
	envOverride(&cfg.HistoryDBPath, "HISTORY_DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.CorpusName, "CORPUS_NAME")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.WatchSchedule, "WATCH_SCHEDULE")

	// Defaults
	if cfg.Mode == "" {
		cfg.Mode = "heuristic"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultAnthropicModel
	}
	if cfg.AgentBatchSize == 0 {
		cfg.AgentBatchSize = 25
	}
	if cfg.AgentMaxInFlight == 0 {
		cfg.AgentMaxInFlight = 4
	}
	if cfg.AgentTimeoutSecs == 0 {
		cfg.AgentTimeoutSecs = 60
	}
	if cfg.AgentMaxRetries == 0 {
		cfg.AgentMaxRetries = 2
	}
	if cfg.AgentExcerptChars == 0 {
		cfg.AgentExcerptChars = 2000
	}
	if cfg.MinTagFrequency == 0 {
		cfg.MinTagFrequency = 2
	}
	if cfg.RuleMinRecords == 0 {
		cfg.RuleMinRecords = 3
	}
	if cfg.RuleSignalFraction == 0 {
		cfg.RuleSignalFraction = 0.5
	}
	if cfg.HistoryDBPath == "" {
		cfg.HistoryDBPath = "./frontmatters.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.CorpusName == "" {
		cfg.CorpusName = "Documentation"
	}
	if cfg.WatchSchedule == "" {
		cfg.WatchSchedule = "0 6 * * *"
	}

	// Validate
	if cfg.Mode != "heuristic" && cfg.Mode != "agent" {
		log.Fatalf("mode must be 'heuristic' or 'agent', got '%s'", cfg.Mode)
	}
	if cfg.Mode == "agent" && cfg.AnthropicAPIKey == "" {
		log.Fatalf("anthropic_api_key is required when mode=agent")
	}
	if cfg.AgentBatchSize < 1 {
		log.Fatalf("invalid agent_batch_size '%d': must be >= 1", cfg.AgentBatchSize)
	}
	if cfg.AgentMaxInFlight < 1 {
		log.Fatalf("invalid agent_max_in_flight '%d': must be >= 1", cfg.AgentMaxInFlight)
	}
	if cfg.AgentMaxRetries < 0 {
		log.Fatalf("invalid agent_max_retries '%d': must be >= 0", cfg.AgentMaxRetries)
	}
	if cfg.MinTagFrequency < 1 {
		log.Fatalf("invalid min_tag_frequency '%d': must be >= 1", cfg.MinTagFrequency)
	}
	if cfg.ConsolidationOverlap < 0 {
		log.Fatalf("invalid consolidation_overlap '%d': must be >= 0", cfg.ConsolidationOverlap)
	}
	if cfg.RuleSignalFraction <= 0 || cfg.RuleSignalFraction > 1 {
		log.Fatalf("invalid rule_signal_fraction '%f': must be in (0, 1]", cfg.RuleSignalFraction)
	}
	if cfg.KeywordsPath != "" {
		if _, err := LoadKeywordTable(cfg.KeywordsPath); err != nil {
			log.Fatalf("invalid keywords_path '%s': %v", cfg.KeywordsPath, err)
		}
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
