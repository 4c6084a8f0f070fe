package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGo(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunAcceptsMarkedQueries(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q.go", "package q\n\nconst QOne = `--sql 06e7d74a-242f-4815-9070-02a9cc6c18b0\nselect 1;`\n\nconst Label = \"not sql at all\"\n")

	var stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{dir}, &stderr))
	assert.Empty(t, stderr.String())
}

func TestRunReportsMissingMarker(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q.go", "package q\n\nconst QBad = `select * from prompts`\n")

	var stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{dir}, &stderr))
	assert.Contains(t, stderr.String(), "QBad")
	assert.Contains(t, stderr.String(), "missing or invalid")
}

func TestRunReportsDuplicateMarkerAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	const marker = "--sql 67a0ae8d-837a-4c90-9422-b3d38d6a8865"
	writeGo(t, dir, "a.go", "package q\n\nconst QA = `"+marker+"\nselect 1;`\n")
	writeGo(t, dir, "b.go", "package q\n\nconst QB = `"+marker+"\ndelete from prompts;`\n")

	var stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{dir}, &stderr))
	assert.Contains(t, stderr.String(), "marker already used by QA")
}

func TestRunSkipsTestFilesAndHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q_test.go", "package q\n\nconst QRaw = `select 1`\n")
	hidden := filepath.Join(dir, ".cache")
	require.NoError(t, os.Mkdir(hidden, 0o755))
	writeGo(t, hidden, "x.go", "package x\n\nconst QRaw = `select 1`\n")

	var stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{dir}, &stderr))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "--sql abc", firstLine("\n  --sql abc  \nselect 1"))
	assert.Equal(t, "select 1", firstLine("select 1"))
}

func TestRunOnSQLInlinePackage(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{filepath.Join("..", "..", "sqlinline")}, &stderr), stderr.String())
}
