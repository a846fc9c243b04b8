package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/errgroup"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// TaskKind enumerates the remote-inference task contracts. Each kind has a
// fixed role framing and a typed response shape.
type TaskKind string

const (
	TaskClassify TaskKind = "classify"
	TaskTag      TaskKind = "tag"
	TaskRule     TaskKind = "rule"
)

type LLMUsage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// inferenceClient is the opaque remote capability: given a bounded context
// and a task framing, return text or fail.
type inferenceClient interface {
	complete(ctx context.Context, systemPrompt, userPrompt string) (string, LLMUsage, error)
}

type anthropicClient struct {
	client anthropic.Client
	model  string
}

func newAnthropicClient(apiKey, model string) *anthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *anthropicClient) complete(ctx context.Context, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in response")
}

// AgentConfig bounds the remote-inference work: batch sizing, in-flight
// limit, per-task timeout, and the retry budget for transient failures.
type AgentConfig struct {
	BatchSize    int
	MaxInFlight  int
	Timeout      time.Duration
	MaxRetries   int
	ExcerptChars int
}

// recordOutcome is the per-record inference result flowing into the
// corpus-wide stages, whichever mode produced it.
type recordOutcome struct {
	ContentType ContentType
	Tags        []string
	ZeroSignal  bool
	Source      string // "heuristic" or "agent"
}

// Orchestrator dispatches classify/tag/rule tasks to the remote service with
// bounded concurrency and reconciles the responses with heuristic fallbacks.
type Orchestrator struct {
	cfg        AgentConfig
	classifier ClassifierConfig
	client     inferenceClient
}

func NewOrchestrator(cfg AgentConfig, classifier ClassifierConfig, client inferenceClient) *Orchestrator {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 25
	}
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = 2000
	}
	return &Orchestrator{cfg: cfg, classifier: classifier, client: client}
}

// Run augments the heuristic per-record outcomes with remote inference and
// proposes additional rules. It never fails the analysis: every record that
// the remote service cannot serve keeps its heuristic outcome. The returned
// slice is index-aligned with recs, which stay path-sorted, so downstream
// aggregation is independent of task completion order.
func (o *Orchestrator) Run(ctx context.Context, recs []FileRecord, heuristic []recordOutcome) ([]recordOutcome, []CategorizationRule, LLMUsage, int) {
	out := make([]recordOutcome, len(recs))
	copy(out, heuristic)
	if len(recs) == 0 {
		return out, nil, LLMUsage{}, 0
	}

	var batches [][]FileRecord
	for start := 0; start < len(recs); start += o.cfg.BatchSize {
		end := start + o.cfg.BatchSize
		if end > len(recs) {
			end = len(recs)
		}
		batches = append(batches, recs[start:end])
	}

	type batchResult struct {
		labels        map[string]ContentType
		tags          map[string][]string
		classifyUsage LLMUsage
		tagUsage      LLMUsage
	}
	results := make([]batchResult, len(batches))
	ruleSlot := struct {
		rules []CategorizationRule
		usage LLMUsage
	}{}

	// Bounded fan-out. Tasks never return errors: a failed task just leaves
	// its slot empty and the records fall back to heuristics.
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.MaxInFlight)

	for i, batch := range batches {
		idx, batch := i, batch
		g.Go(func() error {
			labels, usage, err := o.classifyBatch(ctx, idx, batch)
			results[idx].classifyUsage = usage
			if err != nil {
				log.Printf("agent classify batch=%d records=%d fallback: %v", idx, len(batch), err)
			} else {
				results[idx].labels = labels
			}
			return nil
		})
		g.Go(func() error {
			tags, usage, err := o.tagBatch(ctx, idx, batch)
			results[idx].tagUsage = usage
			if err != nil {
				log.Printf("agent tag batch=%d records=%d fallback: %v", idx, len(batch), err)
			} else {
				results[idx].tags = tags
			}
			return nil
		})
	}
	g.Go(func() error {
		rules, usage, err := o.ruleTask(ctx, recs, heuristic)
		ruleSlot.usage = usage
		if err != nil {
			log.Printf("agent rule task fallback: %v", err)
		} else {
			ruleSlot.rules = rules
		}
		return nil
	})
	_ = g.Wait() // join barrier before any corpus-wide aggregation

	totalUsage := ruleSlot.usage
	fallbacks := 0
	for bi, batch := range batches {
		totalUsage.Add(results[bi].classifyUsage)
		totalUsage.Add(results[bi].tagUsage)
		for ri, rec := range batch {
			i := bi*o.cfg.BatchSize + ri
			label, okLabel := results[bi].labels[rec.Path]
			agentTags, okTags := results[bi].tags[rec.Path]
			if !okLabel && !okTags {
				fallbacks++
				continue
			}
			o2 := heuristic[i]
			o2.Source = "agent"
			if okLabel {
				o2.ContentType = label
				o2.ZeroSignal = false
			}
			if okTags {
				o2.Tags = mergeTagSets(agentTags, rec, o2.ContentType)
			}
			out[i] = o2
		}
	}
	return out, ruleSlot.rules, totalUsage, fallbacks
}

// mergeTagSets folds agent tags into the same superset-safe shape the
// heuristic proposer produces: label tag and normalized existing tags are
// always retained.
func mergeTagSets(agentTags []string, rec FileRecord, label ContentType) []string {
	merged := append([]string{}, agentTags...)
	if label != TypeGeneral {
		merged = append(merged, string(label))
	}
	merged = append(merged, rec.ExistingTags...)
	set := make(map[string]struct{}, len(merged))
	out := merged[:0]
	for _, tag := range merged {
		tag = normalizeTag(tag)
		if tag == "" {
			continue
		}
		if _, dup := set[tag]; dup {
			continue
		}
		set[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func (o *Orchestrator) classifyBatch(ctx context.Context, idx int, batch []FileRecord) (map[string]ContentType, LLMUsage, error) {
	system := classifySystemPrompt()
	user := "Classify these documents:\n\n" + o.batchContext(batch)
	log.Printf("agent classify batch=%d records=%d", idx, len(batch))

	text, usage, err := o.completeWithRetry(ctx, system, user)
	if err != nil {
		return nil, usage, err
	}
	var items []struct {
		Path        string `json:"path"`
		ContentType string `json:"content_type"`
	}
	if err := json.Unmarshal([]byte(stripJSONFences(text)), &items); err != nil {
		return nil, usage, fmt.Errorf("parsing classify response: %w", err)
	}
	known := make(map[string]bool, len(batch))
	for _, rec := range batch {
		known[rec.Path] = true
	}
	labels := make(map[string]ContentType)
	for _, item := range items {
		ct := normalizeTextToken(item.ContentType)
		if !known[item.Path] || !validContentType(ct) {
			continue
		}
		labels[item.Path] = ContentType(ct)
	}
	return labels, usage, nil
}

func (o *Orchestrator) tagBatch(ctx context.Context, idx int, batch []FileRecord) (map[string][]string, LLMUsage, error) {
	system := tagSystemPrompt()
	user := "Suggest tags for these documents:\n\n" + o.batchContext(batch)
	log.Printf("agent tag batch=%d records=%d", idx, len(batch))

	text, usage, err := o.completeWithRetry(ctx, system, user)
	if err != nil {
		return nil, usage, err
	}
	var items []struct {
		Path string   `json:"path"`
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(stripJSONFences(text)), &items); err != nil {
		return nil, usage, fmt.Errorf("parsing tag response: %w", err)
	}
	known := make(map[string]bool, len(batch))
	for _, rec := range batch {
		known[rec.Path] = true
	}
	tags := make(map[string][]string)
	for _, item := range items {
		if !known[item.Path] {
			continue
		}
		var clean []string
		for _, tag := range item.Tags {
			if tag = normalizeTag(tag); tag != "" {
				clean = append(clean, tag)
			}
		}
		if len(clean) > 0 {
			tags[item.Path] = clean
		}
	}
	return tags, usage, nil
}

func (o *Orchestrator) ruleTask(ctx context.Context, recs []FileRecord, heuristic []recordOutcome) ([]CategorizationRule, LLMUsage, error) {
	system := ruleSystemPrompt()
	user := "Label distribution with shared path segments:\n\n" + labelDistributionSummary(recs, heuristic)
	log.Printf("agent rule records=%d", len(recs))

	text, usage, err := o.completeWithRetry(ctx, system, user)
	if err != nil {
		return nil, usage, err
	}
	var items []struct {
		ContentType string `json:"content_type"`
		PathToken   string `json:"path_token"`
		Category    string `json:"category"`
		Rationale   string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(stripJSONFences(text)), &items); err != nil {
		return nil, usage, fmt.Errorf("parsing rule response: %w", err)
	}
	var rules []CategorizationRule
	for _, item := range items {
		ct := normalizeTextToken(item.ContentType)
		tok := normalizeTextToken(item.PathToken)
		if !validContentType(ct) || tok == "" || strings.TrimSpace(item.Category) == "" {
			continue
		}
		rules = append(rules, CategorizationRule{
			Rationale: strings.TrimSpace(item.Rationale),
			Condition: RuleCondition{ContentType: ContentType(ct), PathToken: tok},
			Category:  strings.TrimSpace(item.Category),
		})
	}
	return rules, usage, nil
}

// completeWithRetry retries transient remote failures with exponential
// backoff (1s, 2s, 4s). Timeouts and non-transient failures return
// immediately so the caller can fall back without burning the retry budget.
func (o *Orchestrator) completeWithRetry(ctx context.Context, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	var total LLMUsage
	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", total, ctx.Err()
			}
		}
		taskCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
		text, usage, err := o.client.complete(taskCtx, systemPrompt, userPrompt)
		cancel()
		total.Add(usage)
		if err == nil {
			return text, total, nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", total, err
		}
		log.Printf("agent transient failure attempt=%d: %v", attempt, err)
	}
	return "", total, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isTransient classifies remote failures. Rate limits and server-side errors
// are worth retrying; timeouts, cancellations and malformed requests are not.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode == 429 || apierr.StatusCode >= 500
	}
	// Unclassified errors are assumed to be network-level and transient.
	return true
}

func (o *Orchestrator) batchContext(batch []FileRecord) string {
	var b strings.Builder
	for _, rec := range batch {
		desc := strings.TrimSpace(rec.Description)
		if len(desc) > o.cfg.ExcerptChars {
			desc = desc[:o.cfg.ExcerptChars] + "..."
		}
		fmt.Fprintf(&b, "PATH:%s | NAME:%s | TITLE:%s | DESC:%s\n", rec.Path, rec.Name, rec.Title, desc)
	}
	return b.String()
}

func labelDistributionSummary(recs []FileRecord, outcomes []recordOutcome) string {
	counts := make(map[ContentType]int)
	segs := make(map[ContentType]map[string]int)
	for i, rec := range recs {
		label := outcomes[i].ContentType
		counts[label]++
		if segs[label] == nil {
			segs[label] = make(map[string]int)
		}
		for _, seg := range rec.DirSegments {
			segs[label][normalizeTextToken(seg)]++
		}
	}
	var b strings.Builder
	for _, ct := range contentTypes {
		if counts[ct] == 0 {
			continue
		}
		var tokens []string
		for tok, n := range segs[ct] {
			if n >= 2 {
				tokens = append(tokens, fmt.Sprintf("%s(%d)", tok, n))
			}
		}
		sort.Strings(tokens)
		fmt.Fprintf(&b, "- %s: %d records, shared segments: %s\n", ct, counts[ct], strings.Join(tokens, " "))
	}
	return b.String()
}

func classifySystemPrompt() string {
	var labels strings.Builder
	for _, ct := range contentTypes {
		labels.WriteString("- " + string(ct) + "\n")
	}
	return fmt.Sprintf(`You are an expert content analyst classifying technical documentation.
Assign exactly one content_type to each document from:
%s
Judge from the path, filename, title and description. If nothing fits, use "general".

Respond with JSON only (no markdown):
[{"path": "docs/guide.md", "content_type": "documentation"}, ...]`, labels.String())
}

func tagSystemPrompt() string {
	return `You are an expert metadata specialist designing a semantic tagging system.
Suggest 2-6 relevant tags per document. Tags are lower-case; hierarchical tags
join segments with "/" (for example "domain/subtopic"). Balance broad
categorical tags with specific technical ones.

Respond with JSON only (no markdown):
[{"path": "docs/guide.md", "tags": ["documentation", "api"]}, ...]`
}

func ruleSystemPrompt() string {
	var labels strings.Builder
	for _, ct := range contentTypes {
		labels.WriteString("- " + string(ct) + "\n")
	}
	return fmt.Sprintf(`You are an organizational strategist creating deterministic categorization rules.
Given a content-type distribution with frequently shared path segments, propose
rules that route {content_type AND path_token} to a nested category path.
Valid content types:
%s
Propose at most 5 rules; only use path tokens that appear in the summary.

Respond with JSON only (no markdown):
[{"content_type": "agent", "path_token": "reprally", "category": "Agent/Reprally", "rationale": "..."}, ...]`, labels.String())
}

func stripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
