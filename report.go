package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LabelCount is one row of the content-type distribution.
type LabelCount struct {
	ContentType ContentType
	Count       int
	Percent     float64
}

// FileRecommendation is the per-file slice of the report: what the file is,
// what it should be tagged with, and which engine decided.
type FileRecommendation struct {
	Path         string
	Title        string
	ContentType  ContentType
	Source       string
	ZeroSignal   bool
	ExistingTags []string
	ProposedTags []string
}

// AnalysisReport is the complete analysis result. It carries no timestamps
// or run identifiers, so two runs over the same snapshot with the same
// outcomes produce equal values.
type AnalysisReport struct {
	TotalFiles     int
	Distribution   []LabelCount
	TagTable       []TagStatistic
	Consolidations []Consolidation
	Rules          []CategorizationRule
	Files          []FileRecommendation
}

// AssembleReport builds the report from path-sorted records and their
// index-aligned outcomes plus the corpus-wide aggregates.
func AssembleReport(recs []FileRecord, outcomes []recordOutcome, tagTable []TagStatistic, consolidations []Consolidation, rules []CategorizationRule) AnalysisReport {
	counts := make(map[ContentType]int)
	files := make([]FileRecommendation, len(recs))
	for i, rec := range recs {
		o := outcomes[i]
		counts[o.ContentType]++
		files[i] = FileRecommendation{
			Path:         rec.Path,
			Title:        rec.Title,
			ContentType:  o.ContentType,
			Source:       o.Source,
			ZeroSignal:   o.ZeroSignal,
			ExistingTags: rec.ExistingTags,
			ProposedTags: o.Tags,
		}
	}

	labelOrder := make(map[ContentType]int, len(contentTypes))
	for i, ct := range contentTypes {
		labelOrder[ct] = i
	}
	var dist []LabelCount
	for ct, n := range counts {
		pct := 0.0
		if len(recs) > 0 {
			pct = float64(n) * 100 / float64(len(recs))
		}
		dist = append(dist, LabelCount{ContentType: ct, Count: n, Percent: pct})
	}
	sort.Slice(dist, func(i, j int) bool {
		if dist[i].Count != dist[j].Count {
			return dist[i].Count > dist[j].Count
		}
		return labelOrder[dist[i].ContentType] < labelOrder[dist[j].ContentType]
	})

	return AnalysisReport{
		TotalFiles:     len(recs),
		Distribution:   dist,
		TagTable:       tagTable,
		Consolidations: consolidations,
		Rules:          rules,
		Files:          files,
	}
}

// maxRelatedShown caps the related-tags column in the rendered table. The
// underlying statistics keep the full lists.
const maxRelatedShown = 3

// RenderMarkdown renders the report as a Markdown document. Rendering is a
// pure function of the report value.
func RenderMarkdown(r AnalysisReport, corpusName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Organization Analysis: %s\n\n", corpusName)
	fmt.Fprintf(&b, "Analyzed **%d** markdown files.\n\n", r.TotalFiles)

	b.WriteString("## Content Type Distribution\n\n")
	b.WriteString("| Content Type | Files | Share |\n")
	b.WriteString("|---|---|---|\n")
	for _, lc := range r.Distribution {
		fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", lc.ContentType, lc.Count, lc.Percent)
	}
	b.WriteString("\n")

	b.WriteString("## Tag Statistics\n\n")
	if len(r.TagTable) == 0 {
		b.WriteString("No tags met the frequency threshold.\n\n")
	} else {
		b.WriteString("| Tag | Files | Related Tags |\n")
		b.WriteString("|---|---|---|\n")
		for _, ts := range r.TagTable {
			var related []string
			for i, rt := range ts.Related {
				if i == maxRelatedShown {
					break
				}
				related = append(related, fmt.Sprintf("%s (%d)", rt.Tag, rt.Count))
			}
			fmt.Fprintf(&b, "| %s | %d | %s |\n", ts.Tag, ts.Count, strings.Join(related, ", "))
		}
		b.WriteString("\n")
	}

	if len(r.Consolidations) > 0 {
		b.WriteString("## Consolidation Suggestions\n\n")
		for _, c := range r.Consolidations {
			fmt.Fprintf(&b, "- Consider merging `%s` and `%s` (%d shared files)\n", c.TagA, c.TagB, c.Overlap)
		}
		b.WriteString("\n")
	}

	if len(r.Rules) > 0 {
		b.WriteString("## Categorization Rules\n\n")
		for _, rule := range r.Rules {
			fmt.Fprintf(&b, "%d. When %s, file under **%s**\n", rule.Priority, rule.Condition.String(), rule.Category)
			if rule.Rationale != "" {
				fmt.Fprintf(&b, "   - %s\n", rule.Rationale)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## File Recommendations\n\n")
	b.WriteString("| File | Content Type | Proposed Tags | Source |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, f := range r.Files {
		label := string(f.ContentType)
		if f.ZeroSignal {
			label += " (no signal)"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", f.Path, label, strings.Join(f.ProposedTags, ", "), f.Source)
	}
	b.WriteString("\n")
	return b.String()
}

func WriteReportFile(content, outputDir string, reportDate time.Time, corpusName string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s.md", sanitizeFilename(corpusName), reportDate.Format("20060102"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	return replacer.Replace(s)
}
