package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/profilegen/internal/profile"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-color", "--config-dir", t.TempDir()}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestPromptsCommand(t *testing.T) {
	out, err := execute(t, "prompts")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "company_overview"))
	assert.NotContains(t, out, "file_analysis")
	assert.Contains(t, out, "openai")
}

func TestGenerateCommand_RequiresName(t *testing.T) {
	_, err := execute(t, "generate")
	assert.Error(t, err)
}

func TestGenerateCommand_InvalidWebsite(t *testing.T) {
	_, err := execute(t, "generate", "Acme", "--website", "ftp://acme.com")
	assert.ErrorContains(t, err, "website")
}

func TestWriteProfile(t *testing.T) {
	subj, err := profile.NewSubject("Acme", "", "")
	require.NoError(t, err)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &profile.Profile{
		Subject: subj,
		Sections: []profile.Section{
			profile.NewSection("leadership", "Jane", at),
			profile.NewSection("company_overview", "Anvils", at),
		},
		GeneratedAt: at,
	}
	canonical := []string{"company_overview", "leadership"}
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "acme.JSON")
	require.NoError(t, writeProfile(jsonPath, p, canonical))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded struct {
		Sections []struct {
			Prompt string `json:"prompt"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Sections, 2)
	assert.Equal(t, "company_overview", decoded.Sections[0].Prompt)

	mdPath := filepath.Join(dir, "acme.md")
	require.NoError(t, writeProfile(mdPath, p, canonical))
	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Acme\n"))
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "application/pdf", mediaType("report.pdf", nil))
	assert.Equal(t, "text/plain", mediaType("notes.unknownext", []byte("plain words")))
}
