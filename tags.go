package main

import (
	"sort"
	"strings"
)

// ProposeTags unions three tag sources for a record: the assigned label
// itself, keyword-derived tags from path, filename and description, and the
// record's pre-existing tags. The result is normalized, duplicate-free and
// sorted, so proposing twice over the same record yields the same set.
func ProposeTags(cfg ClassifierConfig, rec FileRecord, label ContentType) []string {
	set := make(map[string]struct{})
	add := func(tag string) {
		if tag = normalizeTag(tag); tag != "" {
			set[tag] = struct{}{}
		}
	}

	if label != TypeGeneral {
		add(string(label))
	}

	for _, seg := range rec.DirSegments {
		seg = normalizeTextToken(seg)
		for _, dirTag := range cfg.Table.DirTags {
			if seg == dirTag {
				add(dirTag)
			}
		}
	}

	name := strings.ToLower(rec.Name)
	for _, kt := range cfg.Table.NameTags {
		if strings.Contains(name, kt.Keyword) {
			for _, tag := range kt.Tags {
				add(tag)
			}
		}
	}

	descTokens := tokenize(rec.Description)
	for _, kt := range cfg.Table.DescTags {
		if descTokens[kt.Keyword] {
			for _, tag := range kt.Tags {
				add(tag)
			}
		}
	}

	for _, tag := range rec.ExistingTags {
		add(tag)
	}

	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// tokenize splits text on non-alphanumeric runes into a lower-case token set.
// Description keywords match whole tokens, not substrings, so "go" does not
// fire on "algorithm".
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		tokens[tok] = true
	}
	return tokens
}
