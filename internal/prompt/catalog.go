// Package prompt loads section prompt templates and their routing config.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/profilegen/internal/promptdata"
)

// FileAnalysis is the prompt used for document analysis. It is loadable
// but never part of the default section list.
const FileAnalysis = "file_analysis"

// orderFile optionally lists the canonical section order.
const orderFile = "order.yaml"

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)

// ErrNotFound matches any *NotFoundError via errors.Is.
var ErrNotFound = errors.New("prompt not found")

// NotFoundError reports a section name with no prompt template.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("prompt %q not found", e.Name) }

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Kind returns the error kind reported in failure outcomes.
func (e *NotFoundError) Kind() string { return "PromptNotFound" }

// Retryable reports false.
func (e *NotFoundError) Retryable() bool { return false }

// Template is a loaded prompt: the system prompt text and the routing
// config from its front matter.
type Template struct {
	Name    string
	Content string
	Config  map[string]any
}

// Catalog resolves section names to prompt templates.
type Catalog interface {
	Load(name string) (Template, error)
	Exists(name string) bool
	// Available returns the default section names in canonical order.
	Available() ([]string, error)
}

// FSCatalog reads "<name>.md" files from an fs.FS. Each file may start
// with a "---" delimited YAML front matter block holding routing config
// such as provider and model.
type FSCatalog struct {
	fsys fs.FS
}

// NewFSCatalog returns a catalog over fsys.
func NewFSCatalog(fsys fs.FS) *FSCatalog {
	return &FSCatalog{fsys: fsys}
}

// NewDirCatalog returns a catalog over a directory on disk.
func NewDirCatalog(dir string) *FSCatalog {
	return NewFSCatalog(os.DirFS(dir))
}

// Default returns the catalog of prompts embedded in the binary.
func Default() *FSCatalog {
	sub, err := fs.Sub(promptdata.PromptsFS, "prompts")
	if err != nil {
		// fs.Sub only fails on an invalid path literal.
		panic(err)
	}
	return NewFSCatalog(sub)
}

// Load implements Catalog.
func (c *FSCatalog) Load(name string) (Template, error) {
	if !namePattern.MatchString(name) {
		return Template{}, &NotFoundError{Name: name}
	}
	raw, err := fs.ReadFile(c.fsys, name+".md")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Template{}, &NotFoundError{Name: name}
		}
		return Template{}, fmt.Errorf("read prompt %q: %w", name, err)
	}

	config, body, err := splitFrontMatter(raw)
	if err != nil {
		return Template{}, fmt.Errorf("parse prompt %q: %w", name, err)
	}
	return Template{Name: name, Content: body, Config: config}, nil
}

// Exists implements Catalog.
func (c *FSCatalog) Exists(name string) bool {
	if !namePattern.MatchString(name) {
		return false
	}
	_, err := fs.Stat(c.fsys, name+".md")
	return err == nil
}

// Available implements Catalog. Names listed in order.yaml come first in
// that order; any other prompt follows alphabetically. The file analysis
// prompt is excluded.
func (c *FSCatalog) Available() ([]string, error) {
	entries, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}

	present := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".md")
		if name == FileAnalysis || !namePattern.MatchString(name) {
			continue
		}
		present[name] = true
	}

	order, err := c.order()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(present))
	for _, name := range order {
		if present[name] {
			names = append(names, name)
			delete(present, name)
		}
	}
	rest := make([]string, 0, len(present))
	for name := range present {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(names, rest...), nil
}

// order returns the canonical section order from order.yaml, or nil when
// the catalog has none.
func (c *FSCatalog) order() ([]string, error) {
	raw, err := fs.ReadFile(c.fsys, orderFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", orderFile, err)
	}
	var doc struct {
		Sections []string `yaml:"sections"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", orderFile, err)
	}
	return doc.Sections, nil
}

var frontMatterDelim = []byte("---")

// splitFrontMatter separates an optional leading YAML block from the body.
func splitFrontMatter(raw []byte) (map[string]any, string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))
	config := map[string]any{}

	first, rest, found := bytes.Cut(raw, []byte("\n"))
	if !found || !bytes.Equal(bytes.TrimSpace(first), frontMatterDelim) {
		return config, strings.TrimSpace(string(raw)), nil
	}

	var front [][]byte
	lines := bytes.Split(rest, []byte("\n"))
	for i, line := range lines {
		if bytes.Equal(bytes.TrimSpace(line), frontMatterDelim) {
			if err := yaml.Unmarshal(bytes.Join(front, []byte("\n")), &config); err != nil {
				return nil, "", fmt.Errorf("front matter: %w", err)
			}
			if config == nil {
				config = map[string]any{}
			}
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return config, strings.TrimSpace(string(body)), nil
		}
		front = append(front, line)
	}
	return nil, "", errors.New("front matter: missing closing ---")
}
