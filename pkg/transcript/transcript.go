// Package transcript holds the ordered, role-tagged conversation history.
package transcript

// Role is the role for a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Transcript is an ordered message list whose first entry is always the
// system message. It is not safe for concurrent use.
type Transcript struct {
	systemPrompt string
	messages     []Message
}

// New returns a transcript holding only the system message.
func New(systemPrompt string) *Transcript {
	t := &Transcript{systemPrompt: systemPrompt}
	t.Reset()
	return t
}

// Reset drops everything except a fresh copy of the system message.
func (t *Transcript) Reset() {
	t.messages = []Message{{Role: RoleSystem, Content: t.systemPrompt}}
}

// Append adds a message to the end of the transcript.
func (t *Transcript) Append(role Role, content string) {
	t.messages = append(t.messages, Message{Role: role, Content: content})
}

// AppendUser adds a user message.
func (t *Transcript) AppendUser(content string) { t.Append(RoleUser, content) }

// AppendAssistant adds an assistant reply.
func (t *Transcript) AppendAssistant(content string) { t.Append(RoleAssistant, content) }

// Messages returns a copy of the transcript in insertion order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len reports the number of messages, including the system message.
func (t *Transcript) Len() int {
	return len(t.messages)
}
