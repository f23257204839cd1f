package domain

import "time"

// Action is a catalogue entry with the grammatical forms needed to render sentences.
type Action struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Emoji        string    `json:"emoji"`
	Infinitive   string    `json:"infinitive"`
	PastTense    string    `json:"past_tense"`
	GenitiveNoun string    `json:"genitive_noun"`
	Description  string    `json:"description,omitempty"`
	UsageCount   int64     `json:"usage_count"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ActionDraft holds validated input for a new catalogue entry.
type ActionDraft struct {
	Name         string `validate:"required,max=100"`
	Emoji        string `validate:"required,max=16"`
	Infinitive   string `validate:"required,max=100"`
	PastTense    string `validate:"required,max=100"`
	GenitiveNoun string `validate:"required,max=100"`
	Description  string `validate:"max=500"`
}

// ActionField names an editable column of Action.
type ActionField string

const (
	FieldName         ActionField = "name"
	FieldEmoji        ActionField = "emoji"
	FieldInfinitive   ActionField = "infinitive"
	FieldPastTense    ActionField = "past_tense"
	FieldGenitiveNoun ActionField = "genitive_noun"
	FieldDescription  ActionField = "description"
)

// EditableFields lists the fields exposed by the edit wizard, in display order.
func EditableFields() []ActionField {
	return []ActionField{FieldName, FieldEmoji, FieldInfinitive, FieldPastTense, FieldGenitiveNoun, FieldDescription}
}

// Valid reports whether f is an editable field.
func (f ActionField) Valid() bool {
	for _, field := range EditableFields() {
		if f == field {
			return true
		}
	}
	return false
}
