// Package memory keeps a bounded, per-type recency store of entities
// mentioned during a conversation (files, meetings, emails, sheets), so the
// agent can resolve pronoun-style references across turns.
package memory

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultMaxEntitiesPerType bounds each type's recency window.
const DefaultMaxEntitiesPerType = 5

// Canonical entity types. The store itself is open to arbitrary type names;
// these four are the ones rendered into prompt context, in this order.
const (
	TypeFile    = "file"
	TypeMeeting = "meeting"
	TypeEmail   = "email"
	TypeSheet   = "sheet"
)

var renderedTypes = []string{TypeFile, TypeMeeting, TypeSheet, TypeEmail}

const contextEntriesPerType = 3

// EntityReference records one previously mentioned entity. References are
// immutable once created.
type EntityReference struct {
	EntityType      string            `json:"entity_type"`
	EntityID        string            `json:"entity_id"`
	Name            string            `json:"name"`
	MentionedAtTurn int               `json:"mentioned_at_turn"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// EntityMemory maps entity types to insertion-ordered reference lists,
// most recent last. Each list never exceeds the configured cap; inserting
// past it evicts the oldest entry. Not safe for concurrent mutation; callers
// hold single-writer discipline per session.
type EntityMemory struct {
	entities   map[string][]EntityReference
	maxPerType int
}

// NewEntityMemory creates a store. A non-positive cap falls back to
// DefaultMaxEntitiesPerType.
func NewEntityMemory(maxPerType int) *EntityMemory {
	if maxPerType <= 0 {
		maxPerType = DefaultMaxEntitiesPerType
	}
	return &EntityMemory{
		entities:   map[string][]EntityReference{},
		maxPerType: maxPerType,
	}
}

// MaxPerType returns the configured per-type cap.
func (m *EntityMemory) MaxPerType() int {
	return m.maxPerType
}

// AddReference appends a reference with the turn defaulted to the current
// length of the type's list. That fallback preserves insertion order within a
// type but is not a real conversation-turn index and can collide across
// types; callers that care about ordering pass an explicit turn via
// AddReferenceAtTurn.
func (m *EntityMemory) AddReference(entityType, entityID, name string, metadata map[string]string) {
	m.AddReferenceAtTurn(entityType, entityID, name, metadata, len(m.entities[entityType]))
}

// AddReferenceAtTurn appends a reference for an explicit turn and truncates
// the type's list to the most recent maxPerType entries.
func (m *EntityMemory) AddReferenceAtTurn(entityType, entityID, name string, metadata map[string]string, turn int) {
	refs := append(m.entities[entityType], EntityReference{
		EntityType:      entityType,
		EntityID:        entityID,
		Name:            name,
		MentionedAtTurn: turn,
		Metadata:        metadata,
	})
	if len(refs) > m.maxPerType {
		refs = refs[len(refs)-m.maxPerType:]
	}
	m.entities[entityType] = refs
}

// Add appends an already-built reference, keeping its recorded turn.
func (m *EntityMemory) Add(ref EntityReference) {
	m.AddReferenceAtTurn(ref.EntityType, ref.EntityID, ref.Name, ref.Metadata, ref.MentionedAtTurn)
}

// GetLatest returns the most recently added reference of the given type.
func (m *EntityMemory) GetLatest(entityType string) (EntityReference, bool) {
	refs := m.entities[entityType]
	if len(refs) == 0 {
		return EntityReference{}, false
	}
	return refs[len(refs)-1], true
}

// References returns a copy of the stored list for a type, oldest first.
func (m *EntityMemory) References(entityType string) []EntityReference {
	refs := m.entities[entityType]
	if len(refs) == 0 {
		return nil
	}
	out := make([]EntityReference, len(refs))
	copy(out, refs)
	return out
}

// HasRecentEntities reports whether any type has at least one entry.
func (m *EntityMemory) HasRecentEntities() bool {
	for _, refs := range m.entities {
		if len(refs) > 0 {
			return true
		}
	}
	return false
}

// HasEntitiesOfType reports whether the given type is known and non-empty.
func (m *EntityMemory) HasEntitiesOfType(entityType string) bool {
	return len(m.entities[entityType]) > 0
}

// ContextString renders the canonical types into a prompt-injectable block:
// up to the three most recent entries per type plus a most-recent callout.
// Returns empty when nothing is stored.
func (m *EntityMemory) ContextString() string {
	sections := make([]string, 0, len(renderedTypes))
	for _, entityType := range renderedTypes {
		refs := m.entities[entityType]
		if len(refs) == 0 {
			continue
		}
		recent := refs
		if len(recent) > contextEntriesPerType {
			recent = recent[len(recent)-contextEntriesPerType:]
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Recently mentioned %ss:\n", entityType))
		for i := len(recent) - 1; i >= 0; i-- {
			sb.WriteString(fmt.Sprintf("- %s (ID: %s)\n", recent[i].Name, recent[i].EntityID))
		}
		sb.WriteString(fmt.Sprintf("Most recent %s: %s", entityType, refs[len(refs)-1].Name))
		sections = append(sections, sb.String())
	}
	return strings.Join(sections, "\n\n")
}

// BriefString is a one-line count summary per non-empty type.
func (m *EntityMemory) BriefString() string {
	types := make([]string, 0, len(m.entities))
	for entityType, refs := range m.entities {
		if len(refs) > 0 {
			types = append(types, entityType)
		}
	}
	if len(types) == 0 {
		return "no recent entities"
	}
	sort.Strings(types)
	parts := make([]string, 0, len(types))
	for _, entityType := range types {
		parts = append(parts, fmt.Sprintf("%s: %d", entityType, len(m.entities[entityType])))
	}
	return "recent entities: " + strings.Join(parts, ", ")
}
