// Package export renders a generated profile as JSON or Markdown, with
// sections in canonical catalog order.
package export

import (
	"encoding/json"
	"time"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/profile"
)

// ProfileExport is the top-level JSON export structure.
type ProfileExport struct {
	Subject     SubjectExport   `json:"subject"`
	GeneratedAt string          `json:"generatedAt"`
	ExportedAt  string          `json:"exportedAt"`
	Sections    []SectionExport `json:"sections"`
}

// SubjectExport describes the subject a profile was generated for.
type SubjectExport struct {
	Name     string `json:"name"`
	Website  string `json:"website,omitempty"`
	Language string `json:"language,omitempty"`
}

// SectionExport is one generated section.
type SectionExport struct {
	Prompt      string `json:"prompt"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	GeneratedAt string `json:"generatedAt"`
}

// Build converts a profile into its export form. Sections are ordered by
// canonical; names outside it come last.
func Build(p *profile.Profile, canonical []string, now time.Time) *ProfileExport {
	out := &ProfileExport{
		GeneratedAt: p.GeneratedAt.UTC().Format(time.RFC3339),
		ExportedAt:  now.UTC().Format(time.RFC3339),
		Sections:    []SectionExport{},
	}
	if p.Subject != nil {
		out.Subject = SubjectExport{
			Name:     p.Subject.Name(),
			Website:  p.Subject.Website(),
			Language: p.Subject.OutputLanguage(),
		}
	}
	for _, s := range orchestrator.SortSections(p.Sections, canonical) {
		out.Sections = append(out.Sections, SectionExport{
			Prompt:      s.PromptFile,
			Title:       s.Name,
			Content:     s.Content,
			GeneratedAt: s.GeneratedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// JSON renders the profile as indented JSON.
func JSON(p *profile.Profile, canonical []string, now time.Time) ([]byte, error) {
	return json.MarshalIndent(Build(p, canonical, now), "", "  ")
}
