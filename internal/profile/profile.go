package profile

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Section is one generated unit of content tied to a named prompt.
type Section struct {
	Name        string    `json:"name"`
	Content     string    `json:"content"`
	PromptFile  string    `json:"prompt_file"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewSection wraps raw LLM output for the given prompt name.
func NewSection(promptName, content string, at time.Time) Section {
	return Section{
		Name:        Humanize(promptName),
		Content:     content,
		PromptFile:  promptName,
		GeneratedAt: at,
	}
}

// Empty reports whether the section has no non-whitespace content.
func (s Section) Empty() bool {
	return strings.TrimSpace(s.Content) == ""
}

// Profile aggregates the sections generated for one Subject. For parallel
// runs Sections are in completion order; for sequential runs, request order.
type Profile struct {
	Subject     *Subject  `json:"subject"`
	Sections    []Section `json:"sections"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Complete reports whether the profile has at least one section and none
// of them is empty.
func (p *Profile) Complete() bool {
	if len(p.Sections) == 0 {
		return false
	}
	for _, s := range p.Sections {
		if s.Empty() {
			return false
		}
	}
	return true
}

// Humanize turns a snake_case prompt name into a title: "company_values"
// becomes "Company Values".
func Humanize(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
