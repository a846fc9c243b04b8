package main

import "strings"

// ClassifierConfig carries the signal weights and the keyword table. Weights
// are policy, not structure; defaults live here so tests can treat them as
// fixtures.
type ClassifierConfig struct {
	PathWeight     int
	FilenameWeight int
	MetadataWeight int
	Table          *KeywordTable
}

func defaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		PathWeight:     3,
		FilenameWeight: 2,
		MetadataWeight: 4,
		Table:          DefaultKeywordTable(),
	}
}

// ClassifyRecord scores every content type from three additive signal
// families and returns the winner. Exact ties go to the earlier-declared
// label; a record with no signal at all defaults to general, reported via
// the second return value.
func ClassifyRecord(cfg ClassifierConfig, rec FileRecord) (ContentType, bool) {
	scores := make(map[ContentType]int, len(contentTypes))

	name := strings.ToLower(rec.Name)
	var segments []string
	for _, seg := range rec.DirSegments {
		segments = append(segments, strings.ToLower(seg))
	}

	for _, lk := range cfg.Table.Labels {
		label := ContentType(lk.Label)
		for _, kw := range lk.Keywords {
			for _, seg := range segments {
				if strings.Contains(seg, kw) {
					scores[label] += cfg.PathWeight
				}
			}
			if strings.Contains(name, kw) {
				scores[label] += cfg.FilenameWeight
			}
		}
	}

	for _, hint := range cfg.Table.TagHints {
		for _, tag := range rec.ExistingTags {
			if normalizeTag(tag) == hint.Tag {
				scores[ContentType(hint.Label)] += cfg.MetadataWeight
			}
		}
	}
	// A declared category that names a label counts as a metadata signal too.
	if cat := normalizeTextToken(rec.Category); validContentType(cat) {
		scores[ContentType(cat)] += cfg.MetadataWeight
	}

	best := TypeGeneral
	bestScore := 0
	for _, ct := range contentTypes {
		if scores[ct] > bestScore {
			best = ct
			bestScore = scores[ct]
		}
	}
	return best, bestScore > 0
}
