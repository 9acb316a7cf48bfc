// Package filter gates proposed tool invocations: before the planning loop
// executes a search, the filter checks whether the referenced file is already
// attached or open and, if so, blocks the call and hands back a substitute.
// Every "cannot determine" condition fails open.
package filter

import (
	"strings"

	"github.com/dotsetgreg/contextgate/pkg/resolve"
	"go.uber.org/zap"
)

// DefaultQueryArgKeys is the ordered list of argument names scanned for the
// search query. The first key holding a non-empty string wins.
var DefaultQueryArgKeys = []string{"query", "search_query", "file_name", "filename", "name", "title"}

// Action is a proposed tool invocation from the planning component.
type Action struct {
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ValidationResult is the allow/block verdict for one action. Reason is set
// whenever the action is blocked; Alternative carries the substitute payload.
type ValidationResult struct {
	Allowed     bool                 `json:"allowed"`
	Reason      string               `json:"reason,omitempty"`
	Alternative *resolve.Alternative `json:"alternative,omitempty"`
}

// SessionContext is the slice of per-session state the filter depends on.
// ConversationContext implements it.
type SessionContext interface {
	OpenFiles() []resolve.OpenFile
	UploadedFiles() []resolve.AttachedFile
	GetFile(id string) (resolve.AttachedFile, bool)
}

// ActionFilter validates proposed actions against a session's file context.
// It holds no mutable state and is safe for concurrent use across sessions.
type ActionFilter struct {
	resolver  *resolve.Resolver
	queryKeys []string
	logger    *zap.Logger
}

// NewActionFilter builds a filter over the given resolver. Nil queryKeys
// falls back to DefaultQueryArgKeys; a nil logger is replaced with a no-op.
func NewActionFilter(resolver *resolve.Resolver, queryKeys []string, logger *zap.Logger) *ActionFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = resolve.NewResolver(logger, nil)
	}
	if len(queryKeys) == 0 {
		queryKeys = DefaultQueryArgKeys
	}
	return &ActionFilter{resolver: resolver, queryKeys: queryKeys, logger: logger}
}

// Validate decides whether action may run. Tools outside the search registry,
// a nil session context, or an undeterminable query all allow unconditionally.
// Explicit fileIDs are unioned into the attached set; ids the context cannot
// resolve are ignored.
func (f *ActionFilter) Validate(action Action, sc SessionContext, fileIDs ...string) ValidationResult {
	if !f.resolver.IsSearchTool(action.ToolName) || sc == nil {
		return ValidationResult{Allowed: true}
	}

	query := f.extractQuery(action.Arguments)
	if query == "" {
		return ValidationResult{Allowed: true}
	}

	attached := attachedSet(sc, fileIDs)
	blocked, alt := f.resolver.ShouldBlockSearch(action.ToolName, query, attached, sc.OpenFiles())
	if !blocked {
		return ValidationResult{Allowed: true}
	}
	f.logger.Info("action blocked",
		zap.String("tool", action.ToolName),
		zap.String("query", query),
		zap.String("reason", alt.Reason))
	return ValidationResult{Allowed: false, Reason: alt.Reason, Alternative: alt}
}

// ValidateBatch validates each action independently, in input order.
func (f *ActionFilter) ValidateBatch(actions []Action, sc SessionContext, fileIDs ...string) []ValidationResult {
	results := make([]ValidationResult, len(actions))
	for i, action := range actions {
		results[i] = f.Validate(action, sc, fileIDs...)
	}
	return results
}

func (f *ActionFilter) extractQuery(args map[string]interface{}) string {
	for _, key := range f.queryKeys {
		if value, ok := args[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func attachedSet(sc SessionContext, fileIDs []string) []resolve.AttachedFile {
	attached := sc.UploadedFiles()
	seen := make(map[string]struct{}, len(attached))
	for _, f := range attached {
		seen[f.Filename] = struct{}{}
	}
	for _, id := range fileIDs {
		f, ok := sc.GetFile(id)
		if !ok {
			continue
		}
		if _, dup := seen[f.Filename]; dup {
			continue
		}
		seen[f.Filename] = struct{}{}
		attached = append(attached, f)
	}
	return attached
}
