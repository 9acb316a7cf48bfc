// Package session owns the serializable per-session state: message history,
// entity memory, pending confirmations, file context, and the stores that
// persist it across process restarts.
package session

import (
	"encoding/json"
	"time"

	"github.com/dotsetgreg/contextgate/pkg/memory"
	"github.com/dotsetgreg/contextgate/pkg/resolve"
	"github.com/google/uuid"
)

// ExecutionMode controls whether planned actions run immediately or wait for
// user approval.
type ExecutionMode string

const (
	ModeInstant  ExecutionMode = "instant"
	ModeApproval ExecutionMode = "approval"
)

// DefaultShortTermWindow is the number of trailing messages callers feed back
// into prompts.
const DefaultShortTermWindow = 10

// Message is one entry in the append-only conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConfirmationStatus tracks the confirmation state machine:
// pending -> approved | rejected.
type ConfirmationStatus string

const (
	ConfirmationPending  ConfirmationStatus = "pending"
	ConfirmationApproved ConfirmationStatus = "approved"
	ConfirmationRejected ConfirmationStatus = "rejected"
)

// PendingConfirmation holds a plan awaiting user approval.
type PendingConfirmation struct {
	Plan      map[string]interface{} `json:"plan"`
	Status    ConfirmationStatus     `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// UploadedFile pairs an attached-file descriptor with its upload time.
type UploadedFile struct {
	File       resolve.AttachedFile `json:"file"`
	UploadedAt time.Time            `json:"uploaded_at"`
}

// ConversationContext is the aggregate root for one session. It is not safe
// for concurrent mutation; callers serialize all writes per session id
// (single-writer discipline). Distinct sessions need no coordination.
type ConversationContext struct {
	SessionID            string                          `json:"session_id"`
	Messages             []Message                       `json:"messages"`
	EntityMemory         *memory.EntityMemory            `json:"entity_memory"`
	PendingConfirmations map[string]*PendingConfirmation `json:"pending_confirmations"`
	AttendeeLists        map[string][]string             `json:"attendee_lists"`
	MeetingReferences    map[string]string               `json:"meeting_references"`
	SheetReferences      map[string]string               `json:"sheet_references"`
	Uploaded             map[string]UploadedFile         `json:"uploaded_files"`
	Open                 []resolve.OpenFile              `json:"open_files"`
	ExecutionMode        ExecutionMode                   `json:"execution_mode"`
	ShortTermWindow      int                             `json:"short_term_window"`
	ModelName            string                          `json:"model_name"`
	Metadata             map[string]string               `json:"metadata"`
	CreatedAt            time.Time                       `json:"created_at"`
	UpdatedAt            time.Time                       `json:"updated_at"`
}

// NewConversationContext creates the aggregate for a session id. An empty id
// gets a generated UUID.
func NewConversationContext(sessionID string) *ConversationContext {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now().UTC()
	return &ConversationContext{
		SessionID:            sessionID,
		Messages:             []Message{},
		EntityMemory:         memory.NewEntityMemory(0),
		PendingConfirmations: map[string]*PendingConfirmation{},
		AttendeeLists:        map[string][]string{},
		MeetingReferences:    map[string]string{},
		SheetReferences:      map[string]string{},
		Uploaded:             map[string]UploadedFile{},
		Open:                 []resolve.OpenFile{},
		ExecutionMode:        ModeInstant,
		ShortTermWindow:      DefaultShortTermWindow,
		Metadata:             map[string]string{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (c *ConversationContext) touch() {
	c.UpdatedAt = time.Now().UTC()
}

// AddMessage appends to the conversation history.
func (c *ConversationContext) AddMessage(role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content, CreatedAt: time.Now().UTC()})
	c.touch()
}

// RecentMessages returns the trailing short-term window of the history.
func (c *ConversationContext) RecentMessages() []Message {
	window := c.ShortTermWindow
	if window <= 0 {
		window = DefaultShortTermWindow
	}
	if len(c.Messages) <= window {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-window:]
}

// AddUploadedFile records an attached file under the given id, generating one
// when absent, and returns the id.
func (c *ConversationContext) AddUploadedFile(id string, file resolve.AttachedFile) string {
	if id == "" {
		id = uuid.NewString()
	}
	c.Uploaded[id] = UploadedFile{File: file, UploadedAt: time.Now().UTC()}
	c.touch()
	return id
}

// SetOpenFiles replaces the whole open-files list. Updates are full-replace
// by contract; there is no incremental patching.
func (c *ConversationContext) SetOpenFiles(files []resolve.OpenFile) {
	c.Open = append([]resolve.OpenFile{}, files...)
	c.touch()
}

// OpenFiles implements filter.SessionContext.
func (c *ConversationContext) OpenFiles() []resolve.OpenFile {
	return c.Open
}

// UploadedFiles implements filter.SessionContext.
func (c *ConversationContext) UploadedFiles() []resolve.AttachedFile {
	files := make([]resolve.AttachedFile, 0, len(c.Uploaded))
	for _, up := range c.Uploaded {
		files = append(files, up.File)
	}
	return files
}

// GetFile implements filter.SessionContext.
func (c *ConversationContext) GetFile(id string) (resolve.AttachedFile, bool) {
	up, ok := c.Uploaded[id]
	return up.File, ok
}

// AddPendingConfirmation inserts a plan in pending state and returns its id,
// generating one when absent.
func (c *ConversationContext) AddPendingConfirmation(id string, plan map[string]interface{}) string {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	c.PendingConfirmations[id] = &PendingConfirmation{
		Plan:      plan,
		Status:    ConfirmationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.touch()
	return id
}

// ResolveConfirmation transitions a pending entry to approved or rejected and
// removes it from the active map in either case. The plan is returned only on
// approval; rejected plans are discarded. Unknown ids are a no-op and report
// found=false, so repeated resolution is idempotent.
func (c *ConversationContext) ResolveConfirmation(id string, approved bool) (plan map[string]interface{}, found bool) {
	entry, ok := c.PendingConfirmations[id]
	if !ok {
		return nil, false
	}
	delete(c.PendingConfirmations, id)
	c.touch()
	if approved {
		entry.Status = ConfirmationApproved
		return entry.Plan, true
	}
	entry.Status = ConfirmationRejected
	return nil, true
}

// IngestToolResult runs entity extraction over a tool's output and appends
// the results into entity memory, stamped with the current message count as
// the turn. Returns the appended references.
func (c *ConversationContext) IngestToolResult(toolName string, result interface{}) []memory.EntityReference {
	refs := memory.ExtractEntitiesFromToolResult(toolName, result)
	if len(refs) == 0 {
		return nil
	}
	turn := len(c.Messages)
	for i := range refs {
		refs[i].MentionedAtTurn = turn
		c.EntityMemory.Add(refs[i])
	}
	c.touch()
	return refs
}

// UnmarshalJSON restores a context with backward-compatible defaults: keys
// absent from older saved documents default instead of failing the load.
func (c *ConversationContext) UnmarshalJSON(data []byte) error {
	type alias ConversationContext
	aux := (*alias)(c)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	if c.EntityMemory == nil {
		c.EntityMemory = memory.NewEntityMemory(0)
	}
	if c.PendingConfirmations == nil {
		c.PendingConfirmations = map[string]*PendingConfirmation{}
	}
	if c.AttendeeLists == nil {
		c.AttendeeLists = map[string][]string{}
	}
	if c.MeetingReferences == nil {
		c.MeetingReferences = map[string]string{}
	}
	if c.SheetReferences == nil {
		c.SheetReferences = map[string]string{}
	}
	if c.Uploaded == nil {
		c.Uploaded = map[string]UploadedFile{}
	}
	if c.Open == nil {
		c.Open = []resolve.OpenFile{}
	}
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	if c.ExecutionMode == "" {
		c.ExecutionMode = ModeInstant
	}
	if c.ShortTermWindow <= 0 {
		c.ShortTermWindow = DefaultShortTermWindow
	}
	return nil
}
