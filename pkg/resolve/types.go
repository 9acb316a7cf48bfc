package resolve

import "encoding/json"

// Source identifies where a referenced file was found.
type Source string

const (
	SourceAttached Source = "attached"
	SourceOpenTab  Source = "open_tab"
	// SourceWorkspace is reserved for a future workspace-search integration.
	// Current matching never produces it.
	SourceWorkspace Source = "workspace"
	SourceUnknown   Source = "unknown"
)

// AttachedFile describes a file whose content arrived with the request.
type AttachedFile struct {
	Filename string `json:"filename"`
	Type     string `json:"type"` // MIME type
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"` // opaque reference to binary payload
}

// OpenFile describes a file open in the user's workspace panel. Content has
// not been read yet; only the identifier is known.
type OpenFile struct {
	Title         string `json:"title"`
	Type          string `json:"type"` // "docs", "sheets", ...
	DocumentID    string `json:"document_id,omitempty"`
	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
	URL           string `json:"url,omitempty"`
}

// UnmarshalJSON accepts both snake_case and camelCase id keys, because
// upstream tool providers have emitted both variants over time.
func (f *OpenFile) UnmarshalJSON(data []byte) error {
	type alias OpenFile
	aux := struct {
		*alias
		DocumentIDCamel    string `json:"documentId,omitempty"`
		SpreadsheetIDCamel string `json:"spreadsheetId,omitempty"`
	}{alias: (*alias)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if f.DocumentID == "" {
		f.DocumentID = aux.DocumentIDCamel
	}
	if f.SpreadsheetID == "" {
		f.SpreadsheetID = aux.SpreadsheetIDCamel
	}
	return nil
}

// FileResolution is the outcome of resolving a free-text file reference.
// NeedsRead and NeedsSearch are fully determined by Source: attached content
// needs neither, an open tab needs a read, an unknown reference needs a search.
type FileResolution struct {
	Source        Source `json:"source"`
	Content       string `json:"content,omitempty"`
	DocumentID    string `json:"document_id,omitempty"`
	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
	Filename      string `json:"filename,omitempty"`
	FileType      string `json:"file_type,omitempty"`
	URL           string `json:"url,omitempty"`
	IsImage       bool   `json:"is_image,omitempty"`
	NeedsRead     bool   `json:"needs_read"`
	NeedsSearch   bool   `json:"needs_search"`
}

// Alternative is the substitute payload returned when a search is blocked.
// It is either a sentinel action ("use_attached_content") or a full
// replacement tool call.
type Alternative struct {
	Action    string                 `json:"action,omitempty"`
	Content   string                 `json:"content,omitempty"`
	Filename  string                 `json:"filename,omitempty"`
	ToolName  string                 `json:"tool_name,omitempty"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Reason    string                 `json:"reason"`
}

// ActionUseAttachedContent marks an Alternative that carries content directly
// instead of recommending another tool call.
const ActionUseAttachedContent = "use_attached_content"
