package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotsetgreg/contextgate/pkg/resolve"
	"github.com/dotsetgreg/contextgate/pkg/session"
)

func runRootCommandForTest(args ...string) (string, error) {
	root := buildRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// pointStorageAt redirects session storage and the archive into a temp dir.
func pointStorageAt(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("CONTEXTGATE_STORAGE_DIR", filepath.Join(dir, "sessions"))
	t.Setenv("CONTEXTGATE_STORAGE_ARCHIVE_PATH", filepath.Join(dir, "archive.db"))
}

func seedSession(t *testing.T, dir string) {
	t.Helper()
	store, err := session.NewFileStore(filepath.Join(dir, "sessions"), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	cc := session.NewConversationContext("s1")
	cc.AddUploadedFile("u1", resolve.AttachedFile{Filename: "report.pdf", Type: "application/pdf", Text: "quarterly"})
	cc.SetOpenFiles([]resolve.OpenFile{{Title: "Budget", Type: "sheets", SpreadsheetID: "sh1"}})
	if err := store.Save(cc); err != nil {
		t.Fatalf("save session: %v", err)
	}
}

func TestCLI_RequiresSubcommand(t *testing.T) {
	_, err := runRootCommandForTest()
	if err == nil || !strings.Contains(err.Error(), "subcommand") {
		t.Fatalf("bare invocation must demand a subcommand, got %v", err)
	}
}

func TestCLI_SessionsListEmpty(t *testing.T) {
	dir := t.TempDir()
	pointStorageAt(t, dir)

	out, err := runRootCommandForTest("sessions", "list", "--config", filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("sessions list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No sessions found") {
		t.Fatalf("expected empty listing, got:\n%s", out)
	}
}

func TestCLI_ResolveAgainstSavedSession(t *testing.T) {
	dir := t.TempDir()
	pointStorageAt(t, dir)
	seedSession(t, dir)

	out, err := runRootCommandForTest("resolve", "--session", "s1", "report",
		"--config", filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"source": "attached"`) || !strings.Contains(out, "quarterly") {
		t.Fatalf("expected attached resolution with content, got:\n%s", out)
	}
}

func TestCLI_ValidateBlocksRedundantSearch(t *testing.T) {
	dir := t.TempDir()
	pointStorageAt(t, dir)
	seedSession(t, dir)

	action := `{"tool_name":"workspace_search_files","arguments":{"query":"budget"}}`
	out, err := runRootCommandForTest("validate", "--session", "s1", action,
		"--config", filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"allowed": false`) || !strings.Contains(out, "sheets_read_range") {
		t.Fatalf("expected blocked verdict with sheet redirect, got:\n%s", out)
	}
}

func TestCLI_SessionsShow(t *testing.T) {
	dir := t.TempDir()
	pointStorageAt(t, dir)
	seedSession(t, dir)

	out, err := runRootCommandForTest("sessions", "show", "s1",
		"--config", filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("sessions show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "report.pdf") || !strings.Contains(out, "Budget") {
		t.Fatalf("expected file context in output, got:\n%s", out)
	}
}
