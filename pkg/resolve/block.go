package resolve

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Recommended substitute tool calls for open-tab resolutions.
const (
	SheetsReadTool = "sheets_read_range"
	DocsReadTool   = "docs_read_document"
	SearchTool     = "workspace_search_files"

	// DefaultSheetRange is deliberately broad; callers narrow it later.
	DefaultSheetRange = "A1:Z100"
)

// ShouldBlockSearch decides whether a proposed search call is redundant
// because the referenced file is already attached or open. Tools outside the
// search registry are never blocked, and an unresolved reference lets the
// search proceed.
func (r *Resolver) ShouldBlockSearch(toolName, query string, attached []AttachedFile, open []OpenFile) (bool, *Alternative) {
	if !r.IsSearchTool(toolName) {
		return false, nil
	}

	res := r.Resolve(query, attached, open)
	switch res.Source {
	case SourceAttached:
		r.logger.Info("search blocked, content attached",
			zap.String("tool", toolName),
			zap.String("query", query),
			zap.String("filename", res.Filename))
		return true, &Alternative{
			Action:   ActionUseAttachedContent,
			Content:  res.Content,
			Filename: res.Filename,
			Reason:   fmt.Sprintf("%q is already attached to this request; use its content directly instead of searching", res.Filename),
		}
	case SourceOpenTab:
		alt := r.RecommendedTool(res)
		alt.Reason = fmt.Sprintf("%q matching %q is open in the workspace; call %s instead of searching", res.Filename, query, alt.ToolName)
		r.logger.Info("search blocked, file open in workspace",
			zap.String("tool", toolName),
			zap.String("query", query),
			zap.String("filename", res.Filename),
			zap.String("recommended", alt.ToolName))
		return true, alt
	default:
		return false, nil
	}
}

// RecommendedTool maps a resolution to the substitute call the caller should
// make instead of searching.
func (r *Resolver) RecommendedTool(res FileResolution) *Alternative {
	switch {
	case res.Source == SourceAttached:
		return &Alternative{
			Action:   ActionUseAttachedContent,
			Filename: res.Filename,
			Reason:   "no tool call needed, content is already available",
		}
	case res.Source == SourceOpenTab && res.SpreadsheetID != "":
		return &Alternative{
			ToolName: SheetsReadTool,
			Arguments: map[string]interface{}{
				"spreadsheet_id": res.SpreadsheetID,
				"range":          DefaultSheetRange,
			},
		}
	case res.Source == SourceOpenTab && res.DocumentID != "":
		return &Alternative{
			ToolName: DocsReadTool,
			Arguments: map[string]interface{}{
				"document_id": res.DocumentID,
			},
		}
	default:
		return &Alternative{
			ToolName: SearchTool,
			Arguments: map[string]interface{}{
				"query": res.Filename,
			},
		}
	}
}

// BuildContextString renders a prioritized file-availability block for prompt
// injection: attached files first, then open tabs, then the workspace folder.
// Only the ordering is a behavioral contract; the wording is not consumed by
// program logic.
func BuildContextString(attached []AttachedFile, open []OpenFile, workspaceFolder string) string {
	var sb strings.Builder

	if len(attached) > 0 {
		sb.WriteString("## Attached Files (content already available, do NOT search for these)\n")
		for _, f := range attached {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", f.Filename, f.Type))
		}
	}

	if len(open) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("## Open Files (read by id, do NOT search for these)\n")
		for _, f := range open {
			id := f.DocumentID
			if id == "" {
				id = f.SpreadsheetID
			}
			if id != "" {
				sb.WriteString(fmt.Sprintf("- %s (%s, id: %s)\n", f.Title, f.Type, id))
			} else {
				sb.WriteString(fmt.Sprintf("- %s (%s)\n", f.Title, f.Type))
			}
		}
	}

	if workspaceFolder != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("## Workspace Folder\nFiles not listed above may live in %q; use the search tool only for those.\n", workspaceFolder))
	}

	return sb.String()
}
