// Package prompts holds the completion template catalog served to clients.
// Templates contain the {transcription} placeholder that the completion
// service substitutes with an asset's transcript.
package prompts

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Placeholder is the reserved token replaced with transcript text.
const Placeholder = "{transcription}"

type Prompt struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Template string `json:"template"`
}

// Defaults returns the built-in catalog.
func Defaults() []Prompt {
	return []Prompt{
		{
			ID:    "youtube-title",
			Title: "YouTube title",
			Template: "Generate three catchy, SEO-friendly titles for a video whose transcript is below.\n\n" +
				"'''\n" + Placeholder + "\n'''\n\n" +
				"Return only the three titles, one per line.",
		},
		{
			ID:    "youtube-description",
			Title: "YouTube description",
			Template: "Write an engaging first-person description for a video whose transcript is below. " +
				"Include up to three relevant hashtags at the end.\n\n" +
				"'''\n" + Placeholder + "\n'''",
		},
		{
			ID:    "summary",
			Title: "Concise summary",
			Template: "Summarize the following video transcript in one short paragraph:\n\n" +
				"'''\n" + Placeholder + "\n'''",
		},
	}
}

// LoadXLSX reads a catalog workbook, auto-detecting title and template
// columns by header heuristics. Rows whose template lacks the placeholder
// are skipped quietly.
func LoadXLSX(path string) ([]Prompt, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	header := rows[0]
	titleIdx, templateIdx, idIdx := -1, -1, -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "template") || strings.Contains(l, "prompt"):
			if templateIdx == -1 {
				templateIdx = i
			}
		case strings.Contains(l, "title") || strings.Contains(l, "name"):
			if titleIdx == -1 {
				titleIdx = i
			}
		case strings.Contains(l, "id"):
			if idIdx == -1 {
				idIdx = i
			}
		}
	}
	if titleIdx == -1 || templateIdx == -1 {
		return nil, fmt.Errorf("missing title or template column in %v", header)
	}

	var out []Prompt
	for i, r := range rows {
		if i == 0 {
			continue
		}
		p := Prompt{}
		if idIdx >= 0 && idIdx < len(r) {
			p.ID = strings.TrimSpace(r[idIdx])
		}
		if titleIdx < len(r) {
			p.Title = strings.TrimSpace(r[titleIdx])
		}
		if templateIdx < len(r) {
			p.Template = r[templateIdx]
		}
		if p.Title == "" || !strings.Contains(p.Template, Placeholder) {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable prompt rows")
	}
	return out, nil
}

// Load returns the catalog from an optional workbook path, falling back to
// the built-in defaults when path is empty.
func Load(path string) ([]Prompt, error) {
	if path == "" {
		return Defaults(), nil
	}
	return LoadXLSX(path)
}
