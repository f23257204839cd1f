package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// Button describes one inline button before its callback data is encoded.
type Button struct {
	Text   string
	Unique string
	Data   string
	// Query makes this a switch_inline_query button; Unique and Data are then ignored.
	Query string
}

// CallbackButton is a button answered by the handler registered for unique.
func CallbackButton(text, unique string, data ...string) Button {
	return Button{Text: text, Unique: unique, Data: JoinData(data...)}
}

// SwitchButton opens the inline picker in a chat chosen by the user, prefilled with query.
func SwitchButton(text, query string) Button {
	return Button{Text: text, Query: query}
}

func (b Button) render() (telebot.InlineButton, error) {
	if b.Query != "" {
		return telebot.InlineButton{Text: b.Text, InlineQuery: b.Query}, nil
	}
	data, err := EncodeCallback(b.Unique, b.Data)
	if err != nil {
		return telebot.InlineButton{}, err
	}
	return telebot.InlineButton{Text: b.Text, Data: data}, nil
}

// Inline collects rows of rendered buttons. The first encoding error sticks and is
// reported by Markup.
type Inline struct {
	rows [][]telebot.InlineButton
	err  error
}

func NewInline() *Inline {
	return &Inline{}
}

// Row appends one row. Empty rows are skipped.
func (k *Inline) Row(buttons ...Button) *Inline {
	if k.err != nil || len(buttons) == 0 {
		return k
	}

	row := make([]telebot.InlineButton, 0, len(buttons))
	for _, b := range buttons {
		rendered, err := b.render()
		if err != nil {
			k.err = err
			return k
		}
		row = append(row, rendered)
	}
	k.rows = append(k.rows, row)
	return k
}

// Grid lays buttons out width per row, the last row taking the remainder.
func (k *Inline) Grid(width int, buttons []Button) *Inline {
	if width < 1 {
		width = 1
	}
	for start := 0; start < len(buttons); start += width {
		k.Row(buttons[start:min(start+width, len(buttons))]...)
	}
	return k
}

// Markup returns the finished keyboard or the first encoding failure.
func (k *Inline) Markup() (*telebot.ReplyMarkup, error) {
	if k.err != nil {
		return nil, k.err
	}
	return &telebot.ReplyMarkup{InlineKeyboard: k.rows}, nil
}
