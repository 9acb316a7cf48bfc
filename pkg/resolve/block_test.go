package resolve

import (
	"strings"
	"testing"
)

func TestShouldBlockSearch_NonRegistryToolNeverBlocked(t *testing.T) {
	r := NewResolver(nil, nil)
	attached := []AttachedFile{{Filename: "report.pdf", Text: "x"}}

	blocked, alt := r.ShouldBlockSearch("calendar_create_event", "report", attached, nil)
	if blocked || alt != nil {
		t.Fatalf("tool outside registry must never be blocked")
	}
}

func TestShouldBlockSearch_AttachedContentAlternative(t *testing.T) {
	r := NewResolver(nil, nil)
	attached := []AttachedFile{{Filename: "report.pdf", Text: "quarterly numbers"}}

	blocked, alt := r.ShouldBlockSearch("workspace_search_files", "report", attached, nil)
	if !blocked {
		t.Fatalf("expected search blocked for attached file")
	}
	if alt.Action != ActionUseAttachedContent {
		t.Fatalf("expected use_attached_content action, got %q", alt.Action)
	}
	if alt.Content != "quarterly numbers" || alt.Filename != "report.pdf" {
		t.Fatalf("alternative must carry content and filename, got %+v", alt)
	}
	if alt.Reason == "" {
		t.Fatalf("blocked alternatives require a reason")
	}
}

func TestShouldBlockSearch_OpenSheetRedirect(t *testing.T) {
	r := NewResolver(nil, nil)
	open := []OpenFile{{Title: "Отчёт", Type: "sheets", SpreadsheetID: "s1"}}

	blocked, alt := r.ShouldBlockSearch("workspace_search_files", "отчёт", nil, open)
	if !blocked {
		t.Fatalf("expected search blocked for open sheet")
	}
	if alt.ToolName != SheetsReadTool {
		t.Fatalf("expected %s, got %q", SheetsReadTool, alt.ToolName)
	}
	if alt.Arguments["spreadsheet_id"] != "s1" {
		t.Fatalf("expected spreadsheet_id s1, got %v", alt.Arguments["spreadsheet_id"])
	}
	if alt.Arguments["range"] != DefaultSheetRange {
		t.Fatalf("expected default range %s, got %v", DefaultSheetRange, alt.Arguments["range"])
	}
	if !strings.Contains(alt.Reason, "Отчёт") {
		t.Fatalf("reason must name the file, got %q", alt.Reason)
	}
	if !strings.Contains(alt.Reason, "отчёт") {
		t.Fatalf("reason must carry the query, got %q", alt.Reason)
	}
}

func TestShouldBlockSearch_UnknownNotBlocked(t *testing.T) {
	r := NewResolver(nil, nil)
	blocked, alt := r.ShouldBlockSearch("workspace_search_files", "missing file", nil, nil)
	if blocked || alt != nil {
		t.Fatalf("unresolved reference must let the search proceed")
	}
}

func TestShouldBlockSearch_CustomRegistry(t *testing.T) {
	r := NewResolver(nil, []string{"my_search"})
	attached := []AttachedFile{{Filename: "a.txt", Text: "x"}}

	if blocked, _ := r.ShouldBlockSearch("workspace_search_files", "a.txt", attached, nil); blocked {
		t.Fatalf("default registry names must not apply when overridden")
	}
	if blocked, _ := r.ShouldBlockSearch("my_search", "a.txt", attached, nil); !blocked {
		t.Fatalf("override registry tool must be blockable")
	}
}

func TestRecommendedTool_DocumentRead(t *testing.T) {
	r := NewResolver(nil, nil)
	alt := r.RecommendedTool(FileResolution{Source: SourceOpenTab, DocumentID: "d9", Filename: "Roadmap"})
	if alt.ToolName != DocsReadTool {
		t.Fatalf("expected %s, got %q", DocsReadTool, alt.ToolName)
	}
	if alt.Arguments["document_id"] != "d9" {
		t.Fatalf("expected document_id d9, got %v", alt.Arguments["document_id"])
	}
}

func TestRecommendedTool_FallbackSearch(t *testing.T) {
	r := NewResolver(nil, nil)
	alt := r.RecommendedTool(FileResolution{Source: SourceUnknown, Filename: "lost.txt"})
	if alt.ToolName != SearchTool {
		t.Fatalf("expected fallback search tool, got %q", alt.ToolName)
	}
	if alt.Arguments["query"] != "lost.txt" {
		t.Fatalf("fallback search must be seeded with the filename")
	}
}

func TestBuildContextString_Ordering(t *testing.T) {
	out := BuildContextString(
		[]AttachedFile{{Filename: "a.pdf", Type: "application/pdf"}},
		[]OpenFile{{Title: "B", Type: "docs", DocumentID: "d1"}},
		"Projects/2026",
	)

	attachedIdx := strings.Index(out, "a.pdf")
	openIdx := strings.Index(out, "B (docs")
	folderIdx := strings.Index(out, "Projects/2026")
	if attachedIdx < 0 || openIdx < 0 || folderIdx < 0 {
		t.Fatalf("all three sections must be present:\n%s", out)
	}
	if !(attachedIdx < openIdx && openIdx < folderIdx) {
		t.Fatalf("sections must be ordered attached < open < workspace:\n%s", out)
	}
	if !strings.Contains(out, "do NOT search") {
		t.Fatalf("sections must carry the do-not-search instruction")
	}
}

func TestBuildContextString_EmptyInputs(t *testing.T) {
	if out := BuildContextString(nil, nil, ""); out != "" {
		t.Fatalf("expected empty context string, got %q", out)
	}
}
