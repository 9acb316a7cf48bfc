package resolve

import (
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// DefaultSearchTools is the registry of search-like tool identifiers that the
// resolver may block. Override per Resolver via NewResolver.
var DefaultSearchTools = []string{
	"workspace_search_files",
	"drive_search_files",
	"file_search",
	"search_files",
}

var (
	documentURLRegex    = regexp.MustCompile(`/document/d/([a-zA-Z0-9_-]+)`)
	spreadsheetURLRegex = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
)

// Resolver resolves free-text file references against attached and open file
// sets in a fixed priority order: attached content first, then open tabs,
// then unknown. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	searchTools map[string]struct{}
	logger      *zap.Logger
}

// NewResolver builds a resolver with the given search-tool registry.
// A nil or empty registry falls back to DefaultSearchTools; a nil logger is
// replaced with a no-op logger.
func NewResolver(logger *zap.Logger, searchTools []string) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(searchTools) == 0 {
		searchTools = DefaultSearchTools
	}
	registry := make(map[string]struct{}, len(searchTools))
	for _, name := range searchTools {
		name = strings.TrimSpace(strings.ToLower(name))
		if name != "" {
			registry[name] = struct{}{}
		}
	}
	return &Resolver{searchTools: registry, logger: logger}
}

// IsSearchTool reports whether toolName is in the search-tool registry.
func (r *Resolver) IsSearchTool(toolName string) bool {
	_, ok := r.searchTools[strings.TrimSpace(strings.ToLower(toolName))]
	return ok
}

// matcher is one resolution tier. It reports a resolution and whether the
// tier matched. Tiers are tried in order; the first hit wins.
type matcher func(query string) (FileResolution, bool)

// Resolve resolves query against the attached and open file sets.
// An empty or whitespace-only query resolves to UNKNOWN.
func (r *Resolver) Resolve(query string, attached []AttachedFile, open []OpenFile) FileResolution {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return unknownResolution()
	}

	chain := []matcher{
		matchAttached(attached),
		matchOpenTab(open),
	}
	for _, m := range chain {
		if res, ok := m(normalized); ok {
			r.logger.Debug("file reference resolved",
				zap.String("query", normalized),
				zap.String("source", string(res.Source)),
				zap.String("filename", res.Filename))
			return res
		}
	}
	return unknownResolution()
}

func unknownResolution() FileResolution {
	return FileResolution{Source: SourceUnknown, NeedsSearch: true}
}

// nameMatch grades a candidate name against a normalized query. Exact matches
// (with or without extension) outrank partial matches; a partial is either the
// query as a substring of the name or the extensionless name starting with
// the query.
type nameMatch int

const (
	matchNone nameMatch = iota
	matchPartial
	matchExact
)

func gradeName(name, query string) nameMatch {
	lower := strings.ToLower(name)
	base := strings.TrimSuffix(lower, filepath.Ext(lower))
	if lower == query || base == query {
		return matchExact
	}
	if strings.Contains(lower, query) || strings.HasPrefix(base, query) {
		return matchPartial
	}
	return matchNone
}

func matchAttached(attached []AttachedFile) matcher {
	return func(query string) (FileResolution, bool) {
		var partial *AttachedFile
		for i := range attached {
			switch gradeName(attached[i].Filename, query) {
			case matchExact:
				return attachedResolution(attached[i]), true
			case matchPartial:
				if partial == nil {
					partial = &attached[i]
				}
			}
		}
		if partial != nil {
			return attachedResolution(*partial), true
		}
		return FileResolution{}, false
	}
}

func attachedResolution(f AttachedFile) FileResolution {
	return FileResolution{
		Source:   SourceAttached,
		Content:  f.Text,
		Filename: f.Filename,
		FileType: f.Type,
		IsImage:  strings.HasPrefix(strings.ToLower(f.Type), "image/"),
	}
}

func matchOpenTab(open []OpenFile) matcher {
	return func(query string) (FileResolution, bool) {
		var partial *OpenFile
		for i := range open {
			switch gradeName(open[i].Title, query) {
			case matchExact:
				return openTabResolution(open[i]), true
			case matchPartial:
				if partial == nil {
					partial = &open[i]
				}
			}
		}
		if partial != nil {
			return openTabResolution(*partial), true
		}
		return FileResolution{}, false
	}
}

func openTabResolution(f OpenFile) FileResolution {
	res := FileResolution{
		Source:        SourceOpenTab,
		DocumentID:    f.DocumentID,
		SpreadsheetID: f.SpreadsheetID,
		Filename:      f.Title,
		FileType:      f.Type,
		URL:           f.URL,
		NeedsRead:     true,
	}
	if res.DocumentID == "" && res.SpreadsheetID == "" && f.URL != "" {
		if id := extractDocumentID(f.URL); id != "" {
			res.DocumentID = id
		} else if id := extractSpreadsheetID(f.URL); id != "" {
			res.SpreadsheetID = id
		}
	}
	return res
}

func extractDocumentID(url string) string {
	if m := documentURLRegex.FindStringSubmatch(url); len(m) == 2 {
		return m[1]
	}
	return ""
}

func extractSpreadsheetID(url string) string {
	if m := spreadsheetURLRegex.FindStringSubmatch(url); len(m) == 2 {
		return m[1]
	}
	return ""
}
