// Package testutil holds fakes shared by handler and middleware tests.
package testutil

import (
	"sync"

	telebot "gopkg.in/telebot.v3"
)

// FakeContext implements the parts of telebot.Context used by the bot handlers.
// Calling any other method panics through the nil embedded interface.
type FakeContext struct {
	telebot.Context

	User       *telebot.User
	Msg        *telebot.Message
	CB         *telebot.Callback
	Q          *telebot.Query
	Chosen     *telebot.InlineResult
	BotHandle  *telebot.Bot
	EditErr    error
	SendErr    error
	RespondErr error

	mu        sync.Mutex
	Sent      []interface{}
	SentOpts  [][]interface{}
	Edited    []interface{}
	EditOpts  [][]interface{}
	Responses []*telebot.CallbackResponse
	Answers   []*telebot.QueryResponse
	Deleted   bool
	store     map[string]interface{}
}

// NewMessage builds a context for a private text message from user.
func NewMessage(user *telebot.User, text string) *FakeContext {
	return &FakeContext{
		User: user,
		Msg: &telebot.Message{
			ID:     1,
			Sender: user,
			Chat:   &telebot.Chat{ID: user.ID, Type: telebot.ChatPrivate},
			Text:   text,
		},
	}
}

// NewCallback builds a context for a callback press with raw data.
func NewCallback(user *telebot.User, data string, msg *telebot.Message) *FakeContext {
	return &FakeContext{
		User: user,
		CB: &telebot.Callback{
			ID:      "cb-1",
			Sender:  user,
			Data:    data,
			Message: msg,
		},
	}
}

// NewInlineCallback builds a callback pressed on an inline-mode message.
func NewInlineCallback(user *telebot.User, data, inlineMessageID string) *FakeContext {
	return &FakeContext{
		User: user,
		CB: &telebot.Callback{
			ID:        "cb-1",
			Sender:    user,
			Data:      data,
			MessageID: inlineMessageID,
		},
	}
}

// NewQuery builds an inline query context.
func NewQuery(user *telebot.User, text string) *FakeContext {
	return &FakeContext{
		User: user,
		Q:    &telebot.Query{ID: "q-1", Sender: user, Text: text},
	}
}

func (c *FakeContext) Bot() *telebot.Bot                   { return c.BotHandle }
func (c *FakeContext) Sender() *telebot.User               { return c.User }
func (c *FakeContext) Callback() *telebot.Callback         { return c.CB }
func (c *FakeContext) Query() *telebot.Query               { return c.Q }
func (c *FakeContext) InlineResult() *telebot.InlineResult { return c.Chosen }

func (c *FakeContext) Message() *telebot.Message {
	if c.CB != nil {
		return c.CB.Message
	}
	return c.Msg
}

func (c *FakeContext) Chat() *telebot.Chat {
	if m := c.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (c *FakeContext) Text() string {
	if c.Msg != nil {
		return c.Msg.Text
	}
	return ""
}

func (c *FakeContext) Data() string {
	switch {
	case c.CB != nil:
		return c.CB.Data
	case c.Q != nil:
		return c.Q.Text
	case c.Msg != nil:
		return c.Msg.Payload
	}
	return ""
}

func (c *FakeContext) Send(what interface{}, opts ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, what)
	c.SentOpts = append(c.SentOpts, opts)
	return c.SendErr
}

func (c *FakeContext) Reply(what interface{}, opts ...interface{}) error {
	return c.Send(what, opts...)
}

func (c *FakeContext) Edit(what interface{}, opts ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Edited = append(c.Edited, what)
	c.EditOpts = append(c.EditOpts, opts)
	return c.EditErr
}

func (c *FakeContext) EditOrSend(what interface{}, opts ...interface{}) error {
	if c.CB != nil && c.CB.Message != nil {
		return c.Edit(what, opts...)
	}
	return c.Send(what, opts...)
}

func (c *FakeContext) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deleted = true
	return nil
}

func (c *FakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		resp = []*telebot.CallbackResponse{{}}
	}
	c.Responses = append(c.Responses, resp...)
	return c.RespondErr
}

func (c *FakeContext) Answer(resp *telebot.QueryResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Answers = append(c.Answers, resp)
	return nil
}

func (c *FakeContext) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *FakeContext) Set(key string, val interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]interface{})
	}
	c.store[key] = val
}

// LastSent returns the last message passed to Send, or nil.
func (c *FakeContext) LastSent() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Sent) == 0 {
		return nil
	}
	return c.Sent[len(c.Sent)-1]
}

// LastResponse returns the last callback response, or nil.
func (c *FakeContext) LastResponse() *telebot.CallbackResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Responses) == 0 {
		return nil
	}
	return c.Responses[len(c.Responses)-1]
}
