package models

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message in the conversation.
type Turn struct {
	Role    string
	Content string
}

// Conversation holds the ordered turn history for one chat session.
// A failed query leaves the user's turn in place with no assistant turn,
// so the question can be re-submitted.
type Conversation struct {
	turns []Turn
}

func (c *Conversation) AddUser(content string) {
	c.turns = append(c.turns, Turn{Role: RoleUser, Content: content})
}

func (c *Conversation) AddAssistant(content string) {
	c.turns = append(c.turns, Turn{Role: RoleAssistant, Content: content})
}

// Turns returns a copy of the history.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Last returns the most recent turn, or false when the history is empty.
func (c *Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}

func (c *Conversation) Clear() {
	c.turns = nil
}
