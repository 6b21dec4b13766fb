package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportJSON = `{
  "header": {"site_id": "P-101", "date": "2024-06-01", "initial_notes": "Windy"},
  "items": [
    {"type": "Casing", "depth": "12.5", "status": "Good", "photos": [{"data": "bm90IGFuIGltYWdl", "label": "broken"}]},
    {"type": "Valve", "depth": "3", "status": "Observed", "photos": null}
  ],
  "closing_notes": "done"
}`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--log-level", "error"))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "report.json", reportJSON)
	out := filepath.Join(dir, "report.pdf")

	_, stderr, err := run(t, "", "render", "--in", in, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderCommandStdinStdout(t *testing.T) {
	stdout, _, err := run(t, reportJSON, "render", "--in", "-", "--out", "-", "--format", "xlsx")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "PK"))
}

func TestRenderCommandChecksSites(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "report.json", reportJSON)
	sitesFile := writeFile(t, dir, "sites.yaml", "- P-200\n- P-201\n")

	_, _, err := run(t, "", "render", "--in", in, "--out", filepath.Join(dir, "x.pdf"), "--sites", sitesFile)
	assert.Error(t, err)

	_, _, err = run(t, "", "render", "--in", in, "--format", "docx")
	assert.ErrorContains(t, err, "unknown format")
}

func TestRenderCommandRequiresInput(t *testing.T) {
	_, _, err := run(t, "", "render")
	assert.ErrorContains(t, err, "--in is required")
}

func TestMessageCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "report.json", reportJSON)

	stdout, _, err := run(t, "", "message", "--in", in, "--out", "-", "--to", "ops@example.com", "--subject", "Weekly")
	require.NoError(t, err)
	assert.Contains(t, stdout, "To: <ops@example.com>")
	assert.Contains(t, stdout, "Subject: Weekly")
	assert.Contains(t, stdout, `inspection-P-101-2024-06-01.pdf`)

	_, _, err = run(t, "", "message", "--in", in, "--out", "-")
	assert.ErrorContains(t, err, "no recipients")
}

func TestSitesCommand(t *testing.T) {
	dir := t.TempDir()
	csvFile := writeFile(t, dir, "sites.csv", "ZONE,POZO\nN,P-101\nS,P-102\nS,P-101\n")

	stdout, _, err := run(t, "", "sites", "--file", csvFile)
	require.NoError(t, err)
	assert.Equal(t, "P-101\nP-102\n", stdout)
}
