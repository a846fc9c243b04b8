package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// errMalformedSnapshot marks fatal input errors. An empty corpus is not
// malformed; it yields a report with zero totals.
var errMalformedSnapshot = errors.New("malformed snapshot")

// TreeNode mirrors the JSON emitted by the tree-snapshot producer.
type TreeNode struct {
	Title       string       `json:"title"`
	Path        string       `json:"path"`
	Type        string       `json:"type"`
	Frontmatter *Frontmatter `json:"frontmatter,omitempty"`
	Children    []TreeNode   `json:"children,omitempty"`
}

// Frontmatter carries the known per-document metadata fields plus a residual
// map for any keys the schema does not model.
type Frontmatter struct {
	Title       string
	Description string
	Category    string
	Tags        []string
	Extra       map[string]any
}

func (f *Frontmatter) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		switch key {
		case "title":
			if s, ok := val.(string); ok {
				f.Title = s
			}
		case "description":
			if s, ok := val.(string); ok {
				f.Description = s
			}
		case "category":
			if s, ok := val.(string); ok {
				f.Category = s
			}
		case "tags":
			f.Tags = coerceTags(val)
		default:
			if f.Extra == nil {
				f.Extra = make(map[string]any)
			}
			f.Extra[key] = val
		}
	}
	return nil
}

// coerceTags tolerates the loose shapes frontmatter tags show up in:
// a list of strings, a single string, or a comma-joined string.
func coerceTags(val any) []string {
	switch v := val.(type) {
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

// FileRecord is one ingested document. Immutable once built.
type FileRecord struct {
	Path         string
	Name         string
	Title        string
	DirSegments  []string
	Description  string
	Category     string
	ExistingTags []string
}

// ParseSnapshot validates a JSON tree snapshot and flattens it into file
// records sorted by path. Only markdown files become records.
func ParseSnapshot(data []byte) ([]FileRecord, error) {
	var root TreeNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedSnapshot, err)
	}
	var records []FileRecord
	if err := collectRecords(root, &records); err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

func collectRecords(node TreeNode, out *[]FileRecord) error {
	if node.Type == "file" {
		if strings.TrimSpace(node.Path) == "" {
			return fmt.Errorf("%w: file node %q has no path", errMalformedSnapshot, node.Title)
		}
		if strings.HasSuffix(strings.ToLower(node.Path), ".md") {
			*out = append(*out, buildRecord(node))
		}
		return nil
	}
	for _, child := range node.Children {
		if err := collectRecords(child, out); err != nil {
			return err
		}
	}
	return nil
}

func buildRecord(node TreeNode) FileRecord {
	name := path.Base(node.Path)
	rec := FileRecord{
		Path: node.Path,
		Name: name,
	}
	dir := path.Dir(node.Path)
	if dir != "." && dir != "/" {
		for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
			if seg != "" {
				rec.DirSegments = append(rec.DirSegments, seg)
			}
		}
	}
	if node.Frontmatter != nil {
		rec.Description = node.Frontmatter.Description
		rec.Category = node.Frontmatter.Category
		rec.ExistingTags = append(rec.ExistingTags, node.Frontmatter.Tags...)
		rec.Title = node.Frontmatter.Title
	}
	if rec.Title == "" {
		rec.Title = node.Title
	}
	if rec.Title == "" {
		rec.Title = titleize(strings.TrimSuffix(name, path.Ext(name)))
	}
	return rec
}

// titleize converts a filename stem into a display title.
func titleize(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
