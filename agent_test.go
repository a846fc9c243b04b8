package main

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// fakeInferenceClient routes on the task role framing in the system prompt.
type fakeInferenceClient struct {
	classifyResp string
	tagResp      string
	ruleResp     string
	err          error
}

func (f *fakeInferenceClient) complete(_ context.Context, systemPrompt, _ string) (string, LLMUsage, error) {
	usage := LLMUsage{InputTokens: 10, OutputTokens: 5}
	if f.err != nil {
		return "", LLMUsage{}, f.err
	}
	switch {
	case strings.Contains(systemPrompt, "content analyst"):
		return f.classifyResp, usage, nil
	case strings.Contains(systemPrompt, "metadata specialist"):
		return f.tagResp, usage, nil
	case strings.Contains(systemPrompt, "organizational strategist"):
		return f.ruleResp, usage, nil
	}
	return "", LLMUsage{}, errors.New("unknown task framing")
}

func testOrchestrator(client inferenceClient) *Orchestrator {
	return NewOrchestrator(AgentConfig{MaxRetries: 0}, defaultClassifierConfig(), client)
}

func heuristicOutcomes(recs []FileRecord) []recordOutcome {
	cfg := defaultClassifierConfig()
	out := make([]recordOutcome, len(recs))
	for i, rec := range recs {
		label, hasSignal := ClassifyRecord(cfg, rec)
		out[i] = recordOutcome{
			ContentType: label,
			Tags:        ProposeTags(cfg, rec, label),
			ZeroSignal:  !hasSignal,
			Source:      "heuristic",
		}
	}
	return out
}

func TestOrchestratorAllFailuresFallBackToHeuristics(t *testing.T) {
	recs := []FileRecord{
		{Path: "README.md", Name: "README.md"},
		{Path: "blog/post.md", Name: "post.md", DirSegments: []string{"blog"}},
	}
	heuristic := heuristicOutcomes(recs)

	orch := testOrchestrator(&fakeInferenceClient{err: errors.New("service unavailable")})
	out, rules, _, fallbacks := orch.Run(context.Background(), recs, heuristic)

	if !reflect.DeepEqual(out, heuristic) {
		t.Fatalf("expected outcomes identical to heuristics:\n%+v\nvs\n%+v", out, heuristic)
	}
	if rules != nil {
		t.Fatalf("expected no remote rules, got %+v", rules)
	}
	if fallbacks != len(recs) {
		t.Fatalf("expected %d fallbacks, got %d", len(recs), fallbacks)
	}

	// Field-for-field report equality with a pure heuristic run.
	graph := BuildTagGraph([][]string{out[0].Tags, out[1].Tags})
	agentReport := AssembleReport(recs, out, graph.Stats(1), nil, nil)
	heuristicReport := AssembleReport(recs, heuristic, graph.Stats(1), nil, nil)
	if !reflect.DeepEqual(agentReport, heuristicReport) {
		t.Fatalf("reports differ after total remote failure")
	}
}

func TestOrchestratorAppliesRemoteResults(t *testing.T) {
	recs := []FileRecord{
		{Path: "notes/entry.md", Name: "entry.md", DirSegments: []string{"notes"}, ExistingTags: []string{"Web Dev"}},
	}
	heuristic := heuristicOutcomes(recs)
	if heuristic[0].ContentType != TypeGeneral || !heuristic[0].ZeroSignal {
		t.Fatalf("fixture should start with a zero-signal general record: %+v", heuristic[0])
	}

	client := &fakeInferenceClient{
		classifyResp: "```json\n[{\"path\": \"notes/entry.md\", \"content_type\": \"blog\"}]\n```",
		tagResp:      `[{"path": "notes/entry.md", "tags": ["Writing", "personal"]}]`,
		ruleResp:     `[]`,
	}
	out, _, usage, fallbacks := testOrchestrator(client).Run(context.Background(), recs, heuristic)

	if fallbacks != 0 {
		t.Fatalf("expected no fallbacks, got %d", fallbacks)
	}
	if out[0].ContentType != TypeBlog || out[0].Source != "agent" || out[0].ZeroSignal {
		t.Fatalf("unexpected outcome: %+v", out[0])
	}
	// Label and existing tags survive the merge, agent tags come normalized.
	want := []string{"blog", "personal", "web-dev", "writing"}
	if !reflect.DeepEqual(out[0].Tags, want) {
		t.Fatalf("expected tags %v, got %v", want, out[0].Tags)
	}
	if usage.TotalTokens() == 0 {
		t.Fatalf("expected token usage to be accounted")
	}
}

func TestOrchestratorDiscardsInvalidLabels(t *testing.T) {
	recs := []FileRecord{
		{Path: "blog/post.md", Name: "post.md", DirSegments: []string{"blog"}},
	}
	heuristic := heuristicOutcomes(recs)

	client := &fakeInferenceClient{
		classifyResp: `[{"path": "blog/post.md", "content_type": "novel-genre"}]`,
		tagResp:      `[{"path": "blog/post.md", "tags": ["essay"]}]`,
		ruleResp:     `[]`,
	}
	out, _, _, _ := testOrchestrator(client).Run(context.Background(), recs, heuristic)

	// The invalid label is dropped; the valid tag response still applies.
	if out[0].ContentType != heuristic[0].ContentType {
		t.Fatalf("invalid label must not override the heuristic one, got %s", out[0].ContentType)
	}
	if out[0].Source != "agent" {
		t.Fatalf("expected agent source after tag merge, got %s", out[0].Source)
	}
	found := false
	for _, tag := range out[0].Tags {
		if tag == "essay" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected agent tag to be merged, got %v", out[0].Tags)
	}
}

func TestOrchestratorIgnoresUnknownPaths(t *testing.T) {
	recs := []FileRecord{
		{Path: "blog/post.md", Name: "post.md", DirSegments: []string{"blog"}},
	}
	heuristic := heuristicOutcomes(recs)

	client := &fakeInferenceClient{
		classifyResp: `[{"path": "other/file.md", "content_type": "agent"}]`,
		tagResp:      `[{"path": "other/file.md", "tags": ["x"]}]`,
		ruleResp:     `[]`,
	}
	out, _, _, fallbacks := testOrchestrator(client).Run(context.Background(), recs, heuristic)
	if fallbacks != 1 {
		t.Fatalf("expected the unaddressed record to count as fallback, got %d", fallbacks)
	}
	if !reflect.DeepEqual(out, heuristic) {
		t.Fatalf("hallucinated paths must not change outcomes")
	}
}

func TestOrchestratorRuleTask(t *testing.T) {
	recs := []FileRecord{
		{Path: "agents/reprally/a.md", Name: "a.md", DirSegments: []string{"agents", "reprally"}},
		{Path: "agents/reprally/b.md", Name: "b.md", DirSegments: []string{"agents", "reprally"}},
	}
	heuristic := heuristicOutcomes(recs)

	client := &fakeInferenceClient{
		classifyResp: `[]`,
		tagResp:      `[]`,
		ruleResp:     `[{"content_type": "agent", "path_token": "reprally", "category": "Agent/Reprally", "rationale": "shared project"}, {"content_type": "bogus", "path_token": "x", "category": "X", "rationale": ""}]`,
	}
	_, rules, _, _ := testOrchestrator(client).Run(context.Background(), recs, heuristic)

	if len(rules) != 1 {
		t.Fatalf("expected the invalid rule filtered out, got %+v", rules)
	}
	if rules[0].Condition.ContentType != TypeAgent || rules[0].Condition.PathToken != "reprally" {
		t.Fatalf("unexpected rule: %+v", rules[0])
	}
}

func TestMergeRulesKeepsSynthesizedOnCollision(t *testing.T) {
	synth := []CategorizationRule{
		{Condition: RuleCondition{ContentType: TypeAgent, PathToken: "reprally"}, Category: "Agent/Reprally", Priority: 1},
		{Condition: RuleCondition{ContentType: TypeAgent}, Category: "Agent", Priority: 2},
	}
	agent := []CategorizationRule{
		{Condition: RuleCondition{ContentType: TypeAgent, PathToken: "reprally"}, Category: "Robots"},
		{Condition: RuleCondition{ContentType: TypeBlog, PathToken: "essays"}, Category: "Blog/Essays"},
	}
	merged := mergeRules(synth, agent)
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged rules, got %+v", merged)
	}
	for _, r := range merged {
		if r.Condition.PathToken == "reprally" && r.Category != "Agent/Reprally" {
			t.Fatalf("synthesized rule must win collisions, got %+v", r)
		}
	}
	if err := validateRules(merged); err != nil {
		t.Fatalf("merged rules failed validation: %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	if isTransient(context.DeadlineExceeded) {
		t.Fatalf("timeouts must not be retried")
	}
	if isTransient(context.Canceled) {
		t.Fatalf("cancellation must not be retried")
	}
	if !isTransient(errors.New("connection reset")) {
		t.Fatalf("network-level errors should be retried")
	}
}

func TestStripJSONFences(t *testing.T) {
	cases := map[string]string{
		"```json\n[1]\n```": "[1]",
		"```\n[1]\n```":     "[1]",
		"[1]":               "[1]",
	}
	for in, want := range cases {
		if got := stripJSONFences(in); got != want {
			t.Errorf("stripJSONFences(%q): expected %q, got %q", in, want, got)
		}
	}
}
