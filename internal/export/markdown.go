package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/profile"
)

// Markdown renders the profile as a single document: a title, a short
// subject header, then one level-two heading per section.
func Markdown(p *profile.Profile, canonical []string) string {
	var sb strings.Builder

	name := "Profile"
	if p.Subject != nil {
		name = p.Subject.Name()
	}
	fmt.Fprintf(&sb, "# %s\n\n", name)

	if p.Subject != nil {
		if w := p.Subject.Website(); w != "" {
			fmt.Fprintf(&sb, "- **Website:** %s\n", w)
		}
		if l := p.Subject.OutputLanguage(); l != "" {
			fmt.Fprintf(&sb, "- **Language:** %s\n", profile.LanguageLabel(l))
		}
	}
	if !p.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Generated:** %s\n", p.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	sb.WriteString("\n")

	for _, s := range orchestrator.SortSections(p.Sections, canonical) {
		fmt.Fprintf(&sb, "## %s\n\n", s.Name)
		content := strings.TrimSpace(s.Content)
		if content == "" {
			sb.WriteString("_No content._\n\n")
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}
