package main

import "sort"

// RelatedTag is one co-occurring tag with its shared-record count.
type RelatedTag struct {
	Tag   string
	Count int
}

// TagStatistic is the corpus-wide view of a single tag.
type TagStatistic struct {
	Tag     string
	Count   int
	Related []RelatedTag
}

// Consolidation suggests merging two tags that overlap on many records.
// Advisory only; nothing ever mutates tags here.
type Consolidation struct {
	TagA    string
	TagB    string
	Overlap int
}

type tagPair struct {
	a, b string
}

func orderedPair(x, y string) tagPair {
	if x < y {
		return tagPair{x, y}
	}
	return tagPair{y, x}
}

// TagGraph accumulates occurrence and co-occurrence counts across the corpus.
type TagGraph struct {
	counts map[string]int
	pairs  map[tagPair]int
}

// BuildTagGraph counts tag occurrences and unordered co-occurring pairs over
// per-record tag sets. Sets are assumed duplicate-free (ProposeTags output).
func BuildTagGraph(tagSets [][]string) *TagGraph {
	g := &TagGraph{
		counts: make(map[string]int),
		pairs:  make(map[tagPair]int),
	}
	for _, tags := range tagSets {
		for i, tag := range tags {
			g.counts[tag]++
			for _, other := range tags[i+1:] {
				g.pairs[orderedPair(tag, other)]++
			}
		}
	}
	return g
}

// Stats returns statistics for tags meeting the minimum occurrence count,
// sorted by count descending then alphabetically. The threshold is a
// reporting filter only: sub-threshold tags still appear in related lists
// and keep their co-occurrence totals.
func (g *TagGraph) Stats(minCount int) []TagStatistic {
	var out []TagStatistic
	for tag, count := range g.counts {
		if count < minCount {
			continue
		}
		out = append(out, TagStatistic{Tag: tag, Count: count, Related: g.relatedTo(tag)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

func (g *TagGraph) relatedTo(tag string) []RelatedTag {
	var related []RelatedTag
	for pair, count := range g.pairs {
		switch tag {
		case pair.a:
			related = append(related, RelatedTag{Tag: pair.b, Count: count})
		case pair.b:
			related = append(related, RelatedTag{Tag: pair.a, Count: count})
		}
	}
	sort.Slice(related, func(i, j int) bool {
		if related[i].Count != related[j].Count {
			return related[i].Count > related[j].Count
		}
		return related[i].Tag < related[j].Tag
	})
	return related
}

// Consolidations suggests merges for surfaced tag pairs sharing at least
// minOverlap records, ordered by overlap descending then tag names.
func (g *TagGraph) Consolidations(minCount, minOverlap int) []Consolidation {
	var out []Consolidation
	for pair, overlap := range g.pairs {
		if overlap < minOverlap {
			continue
		}
		if g.counts[pair.a] < minCount || g.counts[pair.b] < minCount {
			continue
		}
		out = append(out, Consolidation{TagA: pair.a, TagB: pair.b, Overlap: overlap})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Overlap != out[j].Overlap {
			return out[i].Overlap > out[j].Overlap
		}
		if out[i].TagA != out[j].TagA {
			return out[i].TagA < out[j].TagA
		}
		return out[i].TagB < out[j].TagB
	})
	return out
}

// consolidationThreshold derives the default overlap threshold from corpus
// size when no explicit value is configured.
func consolidationThreshold(configured, totalFiles int) int {
	if configured > 0 {
		return configured
	}
	t := totalFiles / 20
	if t < 2 {
		t = 2
	}
	return t
}
