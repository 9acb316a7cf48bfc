package memory

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Tool-name families used to decide which extractor applies to unshaped tool
// output. Overridable configuration surfaces, not hidden literals.
var (
	FileSearchTools        = []string{"workspace_search_files", "drive_search_files", "file_search", "search_files"}
	CalendarListTools      = []string{"calendar_list_events", "list_events"}
	EventCreateTools       = []string{"calendar_create_event", "create_event"}
	SpreadsheetCreateTools = []string{"sheets_create_spreadsheet", "create_spreadsheet"}
	EmailSendTools         = []string{"gmail_send_email", "send_email"}
)

const maxListExtractions = 3

var (
	foundFilesHeaderRegex = regexp.MustCompile(`(?i)Found \d+ files? matching '([^']*)'`)
	foundFilesPrefixRegex = regexp.MustCompile(`(?i)^.*matching '[^']*':\s*`)
	nameIDPairRegex       = regexp.MustCompile(`([^(\n]+?)\s*\(ID:\s*([^)\s][^)]*)\)`)
	documentCreatedRegex  = regexp.MustCompile(`(?i)(?:created|opened)\s+(?:the\s+)?document\s+["']?([^"'(\n]+?)["']?\s*\(ID:\s*([^)]+)\)`)
	sheetCreatedRegex     = regexp.MustCompile(`(?i)(?:created|opened)\s+(?:the\s+)?spreadsheet\s+["']?([^"'(\n]+?)["']?\s*\(ID:\s*([^)]+)\)`)
)

// Field-name variants that upstream tool providers have used for ids and
// names across versions.
var (
	fileIDKeys    = []string{"id", "file_id", "fileId", "document_id", "documentId"}
	fileNameKeys  = []string{"name", "file_name", "fileName", "filename", "title"}
	eventIDKeys   = []string{"id", "event_id", "eventId"}
	eventNameKeys = []string{"summary", "title", "name"}
	sheetIDKeys   = []string{"spreadsheet_id", "spreadsheetId", "id"}
	sheetNameKeys = []string{"title", "name"}
	emailIDKeys   = []string{"id", "message_id", "messageId"}
	emailNameKeys = []string{"subject", "title"}
)

// ExtractEntitiesFromToolResult turns heterogeneous tool output into entity
// references. It dispatches on the shape of result (free text, list of maps,
// single map), never fails, and returns an empty slice for anything it cannot
// interpret. Returned references carry turn 0; the caller stamps the turn
// when appending into an EntityMemory.
func ExtractEntitiesFromToolResult(toolName string, result interface{}) []EntityReference {
	switch v := result.(type) {
	case nil:
		return nil
	case string:
		return extractFromText(toolName, v)
	case []interface{}:
		return extractFromList(toolName, v)
	case []map[string]interface{}:
		generic := make([]interface{}, len(v))
		for i := range v {
			generic[i] = v[i]
		}
		return extractFromList(toolName, generic)
	case map[string]interface{}:
		return extractFromMap(toolName, v)
	default:
		return nil
	}
}

// extractFromText runs an ordered cascade of pattern extractors over free
// text, stopping at the first one that yields anything. Text that looks like
// JSON is parsed and re-dispatched first.
func extractFromText(toolName, text string) []EntityReference {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var parsed interface{}
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return ExtractEntitiesFromToolResult(toolName, parsed)
		}
		// Not valid JSON after all; fall through to the text patterns.
	}

	extractors := []func(toolName, text string) []EntityReference{
		extractFoundFiles,
		extractNamedPairs,
		extractCreatedDocuments,
	}
	for _, extract := range extractors {
		if refs := extract(toolName, trimmed); len(refs) > 0 {
			return refs
		}
	}
	return nil
}

// extractFoundFiles handles the search-result phrasing
// "Found N file(s) matching 'Q': NAME (ID: ID), ...".
func extractFoundFiles(_, text string) []EntityReference {
	header := foundFilesHeaderRegex.FindStringSubmatch(text)
	if header == nil {
		return nil
	}
	query := strings.TrimSpace(header[1])
	refs := pairsToRefs(text, TypeFile)
	for i := range refs {
		if query != "" {
			if refs[i].Metadata == nil {
				refs[i].Metadata = map[string]string{}
			}
			refs[i].Metadata["query"] = query
		}
	}
	return refs
}

// extractNamedPairs handles bare "NAME (ID: ID)" lines, but only for
// file-search tools where that shape is unambiguous.
func extractNamedPairs(toolName, text string) []EntityReference {
	if !toolInFamily(toolName, FileSearchTools) {
		return nil
	}
	return pairsToRefs(text, TypeFile)
}

func extractCreatedDocuments(_, text string) []EntityReference {
	if m := documentCreatedRegex.FindStringSubmatch(text); m != nil {
		if ref, ok := newRef(TypeFile, m[2], m[1]); ok {
			return []EntityReference{ref}
		}
	}
	if m := sheetCreatedRegex.FindStringSubmatch(text); m != nil {
		if ref, ok := newRef(TypeSheet, m[2], m[1]); ok {
			return []EntityReference{ref}
		}
	}
	return nil
}

func pairsToRefs(text, entityType string) []EntityReference {
	matches := nameIDPairRegex.FindAllStringSubmatch(text, -1)
	refs := make([]EntityReference, 0, maxListExtractions)
	for _, m := range matches {
		// Drop a leading "Found N files matching 'q':" prefix when the pair
		// shares a line with the header, plus list punctuation between pairs.
		name := foundFilesPrefixRegex.ReplaceAllString(m[1], "")
		name = strings.TrimLeft(name, " \t,;-•")
		if ref, ok := newRef(entityType, m[2], name); ok {
			refs = append(refs, ref)
			if len(refs) == maxListExtractions {
				break
			}
		}
	}
	return refs
}

// extractFromList maps up to the first three dict items carrying both an id
// and a name into entities; file-search tools yield files, calendar listings
// yield meetings.
func extractFromList(toolName string, items []interface{}) []EntityReference {
	var entityType string
	var idKeys, nameKeys []string
	switch {
	case toolInFamily(toolName, FileSearchTools):
		entityType, idKeys, nameKeys = TypeFile, fileIDKeys, fileNameKeys
	case toolInFamily(toolName, CalendarListTools):
		entityType, idKeys, nameKeys = TypeMeeting, eventIDKeys, eventNameKeys
	default:
		return nil
	}

	refs := make([]EntityReference, 0, maxListExtractions)
	for _, item := range items {
		fields, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if ref, ok := refFromFields(fields, entityType, idKeys, nameKeys); ok {
			refs = append(refs, ref)
			if len(refs) == maxListExtractions {
				break
			}
		}
	}
	return refs
}

// extractFromMap handles single-object tool results: event creation yields a
// meeting, spreadsheet creation a sheet, email send an email, and anything
// else with an id/name pair falls back to a file reference.
func extractFromMap(toolName string, fields map[string]interface{}) []EntityReference {
	var entityType string
	var idKeys, nameKeys []string
	switch {
	case toolInFamily(toolName, EventCreateTools):
		entityType, idKeys, nameKeys = TypeMeeting, eventIDKeys, eventNameKeys
	case toolInFamily(toolName, SpreadsheetCreateTools):
		entityType, idKeys, nameKeys = TypeSheet, sheetIDKeys, sheetNameKeys
	case toolInFamily(toolName, EmailSendTools):
		entityType, idKeys, nameKeys = TypeEmail, emailIDKeys, emailNameKeys
	default:
		entityType, idKeys, nameKeys = TypeFile, fileIDKeys, fileNameKeys
	}
	if ref, ok := refFromFields(fields, entityType, idKeys, nameKeys); ok {
		return []EntityReference{ref}
	}
	return nil
}

func refFromFields(fields map[string]interface{}, entityType string, idKeys, nameKeys []string) (EntityReference, bool) {
	id := stringField(fields, idKeys)
	name := stringField(fields, nameKeys)
	return newRef(entityType, id, name)
}

func newRef(entityType, id, name string) (EntityReference, bool) {
	id = strings.TrimSpace(id)
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	if id == "" || name == "" {
		return EntityReference{}, false
	}
	return EntityReference{EntityType: entityType, EntityID: id, Name: name}, true
}

func stringField(fields map[string]interface{}, keys []string) string {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func toolInFamily(toolName string, family []string) bool {
	toolName = strings.TrimSpace(strings.ToLower(toolName))
	for _, name := range family {
		if toolName == name {
			return true
		}
	}
	return false
}
