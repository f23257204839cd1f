package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
)

func TestCancelKeyboard(t *testing.T) {
	translator := newTranslator()
	markup := keyboard.CancelKeyboard(translator)

	assert.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.ReplyKeyboard, 1)
	assert.Equal(t, "❌ Cancel", markup.ReplyKeyboard[0][0].Text)

	assert.True(t, keyboard.IsCancel(translator, "❌ Cancel"))
	assert.True(t, keyboard.IsCancel(translator, " ❌ Cancel\n"))
	assert.False(t, keyboard.IsCancel(translator, "hug"))
	assert.False(t, keyboard.IsCancel(translator, ""))
	assert.True(t, keyboard.IsCancel(nil, "❌ Cancel"))
	assert.True(t, keyboard.RemoveKeyboard().RemoveKeyboard)
}
