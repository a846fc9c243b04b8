package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
)

// RunSummary is the operational record of one analysis run. It lives beside
// the report, never inside it, so report values stay comparable across runs.
type RunSummary struct {
	RunID           string
	Mode            string
	TotalFiles      int
	FallbackCount   int
	ZeroSignalCount int
	Usage           LLMUsage
	ReportPath      string
	StartedAt       time.Time
}

// Engine wires the pipeline stages together for one configured deployment.
type Engine struct {
	cfg        Config
	classifier ClassifierConfig
	client     inferenceClient
}

func NewEngine(cfg Config) (*Engine, error) {
	classifier := defaultClassifierConfig()
	if cfg.KeywordsPath != "" {
		table, err := LoadKeywordTable(cfg.KeywordsPath)
		if err != nil {
			return nil, fmt.Errorf("loading keyword table: %w", err)
		}
		classifier.Table = table
	}
	e := &Engine{cfg: cfg, classifier: classifier}
	if cfg.Mode == "agent" {
		e.client = newAnthropicClient(cfg.AnthropicAPIKey, cfg.LLMModel)
	}
	return e, nil
}

// Analyze runs the full pipeline over a tree snapshot file and returns the
// report plus the run's operational summary.
func (e *Engine) Analyze(ctx context.Context, snapshotPath string) (AnalysisReport, RunSummary, error) {
	summary := RunSummary{
		RunID:     uuid.NewString(),
		Mode:      e.cfg.Mode,
		StartedAt: time.Now(),
	}

	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		return AnalysisReport{}, summary, fmt.Errorf("reading snapshot: %w", err)
	}
	recs, err := ParseSnapshot(data)
	if err != nil {
		return AnalysisReport{}, summary, err
	}
	summary.TotalFiles = len(recs)
	log.Printf("analyze run=%s mode=%s files=%d", summary.RunID, summary.Mode, len(recs))

	outcomes := make([]recordOutcome, len(recs))
	for i, rec := range recs {
		label, hasSignal := ClassifyRecord(e.classifier, rec)
		outcomes[i] = recordOutcome{
			ContentType: label,
			Tags:        ProposeTags(e.classifier, rec, label),
			ZeroSignal:  !hasSignal,
			Source:      "heuristic",
		}
	}

	var agentRules []CategorizationRule
	if e.cfg.Mode == "agent" && e.client != nil {
		orch := NewOrchestrator(AgentConfig{
			BatchSize:    e.cfg.AgentBatchSize,
			MaxInFlight:  e.cfg.AgentMaxInFlight,
			Timeout:      time.Duration(e.cfg.AgentTimeoutSecs) * time.Second,
			MaxRetries:   e.cfg.AgentMaxRetries,
			ExcerptChars: e.cfg.AgentExcerptChars,
		}, e.classifier, e.client)
		outcomes, agentRules, summary.Usage, summary.FallbackCount = orch.Run(ctx, recs, outcomes)
		log.Printf("analyze run=%s agent fallbacks=%d tokens=%d", summary.RunID, summary.FallbackCount, summary.Usage.TotalTokens())
	}

	labels := make([]ContentType, len(recs))
	tagSets := make([][]string, len(recs))
	for i, o := range outcomes {
		labels[i] = o.ContentType
		tagSets[i] = o.Tags
		if o.ZeroSignal {
			summary.ZeroSignalCount++
		}
	}

	graph := BuildTagGraph(tagSets)
	tagTable := graph.Stats(e.cfg.MinTagFrequency)
	overlap := consolidationThreshold(e.cfg.ConsolidationOverlap, len(recs))
	consolidations := graph.Consolidations(e.cfg.MinTagFrequency, overlap)

	synthCfg := RuleSynthConfig{MinRecords: e.cfg.RuleMinRecords, SignalFraction: e.cfg.RuleSignalFraction}
	rules := SynthesizeRules(synthCfg, e.classifier.Table, recs, labels)
	rules = mergeRules(rules, agentRules)
	if err := validateRules(rules); err != nil {
		return AnalysisReport{}, summary, fmt.Errorf("rule validation: %w", err)
	}

	report := AssembleReport(recs, outcomes, tagTable, consolidations, rules)
	return report, summary, nil
}

// AnalyzeToFile runs the pipeline and writes the rendered report.
func (e *Engine) AnalyzeToFile(ctx context.Context, snapshotPath, outputDir string) (AnalysisReport, RunSummary, error) {
	report, summary, err := e.Analyze(ctx, snapshotPath)
	if err != nil {
		return report, summary, err
	}
	if outputDir == "" {
		outputDir = e.cfg.ReportOutputDir
	}
	content := RenderMarkdown(report, e.cfg.CorpusName)
	path, err := WriteReportFile(content, outputDir, summary.StartedAt, e.cfg.CorpusName)
	if err != nil {
		return report, summary, fmt.Errorf("writing report: %w", err)
	}
	summary.ReportPath = path
	log.Printf("analyze run=%s report=%s", summary.RunID, path)
	return report, summary, nil
}

// mergeRules folds remotely proposed rules into the synthesized set. A
// synthesized rule wins any condition collision, and the combined set is
// re-prioritized so priorities stay unique ordinals.
func mergeRules(synth, agent []CategorizationRule) []CategorizationRule {
	if len(agent) == 0 {
		return synth
	}
	seen := make(map[RuleCondition]bool, len(synth))
	for _, r := range synth {
		seen[r.Condition] = true
	}
	merged := append([]CategorizationRule{}, synth...)
	for _, r := range agent {
		if seen[r.Condition] {
			continue
		}
		seen[r.Condition] = true
		merged = append(merged, r)
	}
	return prioritizeRules(merged)
}
