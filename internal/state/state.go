package state

import (
	"fmt"
	"strconv"
	"time"
)

// State represents a step of an admin wizard.
type State string

const (
	// StateIdle means no wizard is running for the admin.
	StateIdle State = "idle"

	// StateActionAddName waits for the new action's name.
	StateActionAddName State = "action_add_name"
	// StateActionAddEmoji waits for the new action's emoji.
	StateActionAddEmoji State = "action_add_emoji"
	// StateActionAddInfinitive waits for the infinitive form ("hug").
	StateActionAddInfinitive State = "action_add_infinitive"
	// StateActionAddPast waits for the past tense form ("hugged").
	StateActionAddPast State = "action_add_past"
	// StateActionAddNoun waits for the genitive noun form ("a hug").
	StateActionAddNoun State = "action_add_noun"

	// StateActionEditValue waits for a replacement value of one action field.
	StateActionEditValue State = "action_edit_value"

	// StateBroadcastText waits for the broadcast message body.
	StateBroadcastText State = "broadcast_text"
	// StateBroadcastConfirm waits for the admin to confirm the broadcast.
	StateBroadcastConfirm State = "broadcast_confirm"
)

// Context keys shared by wizard handlers.
const (
	KeyName          = "name"
	KeyEmoji         = "emoji"
	KeyInfinitive    = "infinitive"
	KeyPastTense     = "past_tense"
	KeyGenitiveNoun  = "genitive_noun"
	KeyActionID      = "action_id"
	KeyField         = "field"
	KeyBroadcastText = "broadcast_text"
)

// UserState captures the wizard progress of a single admin.
type UserState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// String returns the context value for key as a string.
func (s *UserState) String(key string) string {
	if s == nil || s.Context == nil {
		return ""
	}

	switch v := s.Context[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the context value for key as int64. JSON round trips turn numbers into float64.
func (s *UserState) Int64(key string) (int64, bool) {
	if s == nil || s.Context == nil {
		return 0, false
	}

	switch v := s.Context[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
