// Package profile holds the immutable values produced by a generation run:
// the Subject being profiled, the Sections generated about it and the
// aggregate Profile.
package profile

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Subject is the entity a profile is generated about. It is built once per
// request by NewSubject and never mutated afterwards.
type Subject struct {
	name     string
	website  string
	language string
}

// NewSubject validates and normalizes the raw request fields. website and
// lang may be empty.
func NewSubject(name, website, lang string) (*Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}

	site, err := normalizeWebsite(website)
	if err != nil {
		return nil, err
	}

	code, err := normalizeLanguage(lang)
	if err != nil {
		return nil, err
	}

	return &Subject{name: name, website: site, language: code}, nil
}

// Name returns the trimmed subject name.
func (s *Subject) Name() string { return s.name }

// Website returns the normalized absolute URL, or "" when none was given.
func (s *Subject) Website() string { return s.website }

// OutputLanguage returns the locale code, or "" when none was given.
func (s *Subject) OutputLanguage() string { return s.language }

// Valid reports whether s was produced by NewSubject.
func (s *Subject) Valid() bool { return s != nil && s.name != "" }

type subjectJSON struct {
	Name     string `json:"name"`
	Website  string `json:"website,omitempty"`
	Language string `json:"language,omitempty"`
}

// MarshalJSON renders the normalized fields.
func (s *Subject) MarshalJSON() ([]byte, error) {
	return json.Marshal(subjectJSON{Name: s.name, Website: s.website, Language: s.language})
}

func normalizeWebsite(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &ValidationError{Field: "website", Message: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ValidationError{Field: "website", Message: "scheme must be http or https, got " + u.Scheme}
	}
	if u.Host == "" || strings.ContainsAny(u.Host, " \t") {
		return "", &ValidationError{Field: "website", Message: "missing or malformed host"}
	}
	return u.String(), nil
}

// localePattern matches codes such as "fr", "deu", "pt-BR" and "en_GB".
var localePattern = regexp.MustCompile(`^[a-zA-Z]{2,3}([-_][a-zA-Z]{2})?$`)

// knownLanguages are the base languages free-text aliases are resolved against.
var knownLanguages = []language.Tag{
	language.Arabic, language.Bulgarian, language.Chinese, language.Croatian,
	language.Czech, language.Danish, language.Dutch, language.English,
	language.Estonian, language.Finnish, language.French, language.German,
	language.Greek, language.Hebrew, language.Hindi, language.Hungarian,
	language.Indonesian, language.Italian, language.Japanese, language.Korean,
	language.Latvian, language.Lithuanian, language.Norwegian, language.Polish,
	language.Portuguese, language.Romanian, language.Russian, language.Serbian,
	language.Slovak, language.Slovenian, language.Spanish, language.Swedish,
	language.Thai, language.Turkish, language.Ukrainian, language.Vietnamese,
}

func normalizeLanguage(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if localePattern.MatchString(raw) {
		return raw, nil
	}

	english := display.English.Tags()
	for _, tag := range knownLanguages {
		if strings.EqualFold(raw, english.Name(tag)) || strings.EqualFold(raw, display.Self.Name(tag)) {
			base, _ := tag.Base()
			return base.String(), nil
		}
	}
	return "", &ValidationError{Field: "output_language", Message: "unrecognized language " + raw}
}

// LanguageLabel returns the native, title-cased name of a locale code
// ("fr" -> "Français"). Unknown codes are returned unchanged.
func LanguageLabel(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return code
	}
	name := display.Self.Name(tag)
	if name == "" {
		return code
	}
	return cases.Title(tag).String(name)
}
