package main

import (
	"fmt"
	"sort"
	"strings"
)

// RuleCondition is a structured predicate over content type, path segments
// and filename. Empty fields are wildcards.
type RuleCondition struct {
	ContentType ContentType
	PathToken   string
	NameToken   string
}

func (c RuleCondition) terms() int {
	n := 0
	if c.ContentType != "" {
		n++
	}
	if c.PathToken != "" {
		n++
	}
	if c.NameToken != "" {
		n++
	}
	return n
}

// Matches reports whether the condition applies to a record with the given
// assigned content type.
func (c RuleCondition) Matches(rec FileRecord, label ContentType) bool {
	if c.ContentType != "" && c.ContentType != label {
		return false
	}
	if c.PathToken != "" {
		found := false
		for _, seg := range rec.DirSegments {
			if normalizeTextToken(seg) == c.PathToken {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.NameToken != "" && !strings.Contains(strings.ToLower(rec.Name), c.NameToken) {
		return false
	}
	return true
}

func (c RuleCondition) String() string {
	var parts []string
	if c.ContentType != "" {
		parts = append(parts, fmt.Sprintf("content_type == %q", c.ContentType))
	}
	if c.PathToken != "" {
		parts = append(parts, fmt.Sprintf("path contains segment %q", c.PathToken))
	}
	if c.NameToken != "" {
		parts = append(parts, fmt.Sprintf("filename contains %q", c.NameToken))
	}
	if len(parts) == 0 {
		return "always"
	}
	return strings.Join(parts, " and ")
}

// CategorizationRule routes records matching a condition to a category path.
// Lower priority numbers are evaluated first; priorities are unique across a
// rule set, so the first match is always unambiguous.
type CategorizationRule struct {
	Rationale string
	Condition RuleCondition
	Category  string
	Priority  int
}

type RuleSynthConfig struct {
	MinRecords     int
	SignalFraction float64
}

func defaultRuleSynthConfig() RuleSynthConfig {
	return RuleSynthConfig{MinRecords: 3, SignalFraction: 0.5}
}

// SynthesizeRules derives categorization rules from the per-label path-signal
// distribution. Labels with enough records get a centralizing base rule; a
// path segment shared by a significant fraction of a label's records adds a
// more specific routing rule that wins over the base rule.
func SynthesizeRules(cfg RuleSynthConfig, table *KeywordTable, recs []FileRecord, labels []ContentType) []CategorizationRule {
	byLabel := make(map[ContentType][]int)
	for i := range recs {
		byLabel[labels[i]] = append(byLabel[labels[i]], i)
	}

	var labelKeywords []string
	for _, lk := range table.Labels {
		labelKeywords = append(labelKeywords, lk.Label)
		labelKeywords = append(labelKeywords, lk.Keywords...)
	}
	// Classification matches keywords as substrings of segments, so a token
	// restates the label whenever it contains a label keyword.
	restatesLabel := func(tok string) bool {
		for _, kw := range labelKeywords {
			if strings.Contains(tok, kw) {
				return true
			}
		}
		return false
	}

	var candidates []CategorizationRule
	for _, label := range contentTypes {
		idxs := byLabel[label]
		if len(idxs) <= cfg.MinRecords || label == TypeGeneral {
			continue
		}

		candidates = append(candidates, CategorizationRule{
			Rationale: fmt.Sprintf("%d records share the %s content type; centralize them under one category", len(idxs), label),
			Condition: RuleCondition{ContentType: label},
			Category:  titleize(string(label)),
		})

		// Count distinct path-segment tokens within this label, once per
		// record, skipping tokens that merely restate the label keywords.
		tokenCounts := make(map[string]int)
		for _, i := range idxs {
			seen := make(map[string]bool)
			for _, seg := range recs[i].DirSegments {
				tok := normalizeTextToken(seg)
				if tok == "" || seen[tok] || restatesLabel(tok) {
					continue
				}
				seen[tok] = true
				tokenCounts[tok]++
			}
		}
		need := int(cfg.SignalFraction * float64(len(idxs)))
		if need < 2 {
			need = 2
		}
		var tokens []string
		for tok, n := range tokenCounts {
			if n >= need {
				tokens = append(tokens, tok)
			}
		}
		sort.Strings(tokens)
		for _, tok := range tokens {
			candidates = append(candidates, CategorizationRule{
				Rationale: fmt.Sprintf("%d of %d %s records share the %q path segment; route them to a nested category", tokenCounts[tok], len(idxs), label, tok),
				Condition: RuleCondition{ContentType: label, PathToken: tok},
				Category:  titleize(string(label)) + "/" + titleize(tok),
			})
		}
	}

	return prioritizeRules(candidates)
}

// prioritizeRules orders rules by specificity (more condition terms first),
// then label declaration order, then path token, and assigns each a unique
// ordinal priority starting at 1.
func prioritizeRules(rules []CategorizationRule) []CategorizationRule {
	labelOrder := make(map[ContentType]int, len(contentTypes))
	for i, ct := range contentTypes {
		labelOrder[ct] = i
	}
	sort.SliceStable(rules, func(i, j int) bool {
		ti, tj := rules[i].Condition.terms(), rules[j].Condition.terms()
		if ti != tj {
			return ti > tj
		}
		li, lj := labelOrder[rules[i].Condition.ContentType], labelOrder[rules[j].Condition.ContentType]
		if li != lj {
			return li < lj
		}
		if rules[i].Condition.PathToken != rules[j].Condition.PathToken {
			return rules[i].Condition.PathToken < rules[j].Condition.PathToken
		}
		return rules[i].Condition.NameToken < rules[j].Condition.NameToken
	})
	for i := range rules {
		rules[i].Priority = i + 1
	}
	return rules
}

// validateRules enforces the resolvability contract: non-empty conditions,
// strictly increasing unique priorities matching declaration order.
func validateRules(rules []CategorizationRule) error {
	seen := make(map[int]bool, len(rules))
	prev := 0
	for i, r := range rules {
		if r.Condition.terms() == 0 {
			return fmt.Errorf("rule %d has an empty condition", i)
		}
		if r.Priority <= 0 {
			return fmt.Errorf("rule %d has non-positive priority %d", i, r.Priority)
		}
		if seen[r.Priority] {
			return fmt.Errorf("duplicate rule priority %d", r.Priority)
		}
		if r.Priority <= prev {
			return fmt.Errorf("rule priorities out of order at index %d", i)
		}
		seen[r.Priority] = true
		prev = r.Priority
	}
	return nil
}

// firstMatchingRule resolves a record against an ordered rule set. At most
// one rule can win because priorities are unique.
func firstMatchingRule(rules []CategorizationRule, rec FileRecord, label ContentType) (CategorizationRule, bool) {
	for _, r := range rules {
		if r.Condition.Matches(rec, label) {
			return r, true
		}
	}
	return CategorizationRule{}, false
}
