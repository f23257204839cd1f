package bot

import (
	"github.com/Proton-105/cuteforcute-bot/internal/bot/keyboard"
)

// Command constants for Telegram bot commands.
const (
	CommandStart       = "/start"
	CommandHelp        = "/help"
	CommandStats       = "/stats"
	CommandMe          = "/me"
	CommandTop         = "/top"
	CommandCancel      = "/cancel"
	CommandAdmin       = "/admin"
	CommandAddAdmin    = "/addadmin"
	CommandRemoveAdmin = "/deladmin"
)

// publicCommands are advertised in the Telegram command menu, in order.
var publicCommands = []string{CommandStart, CommandHelp, CommandStats, CommandTop, CommandCancel}

// Callback uniques routed by the bot; see keyboard for the payload layout of each.
const (
	CallbackInteraction     = keyboard.UniqueInteraction
	CallbackNoop            = keyboard.UniqueNoop
	CallbackCancel          = keyboard.UniqueCancel
	CallbackAdminMenu       = keyboard.UniqueAdminMenu
	CallbackAdminList       = keyboard.UniqueAdminList
	CallbackAdminAction     = keyboard.UniqueAdminAction
	CallbackAdminAdd        = keyboard.UniqueAdminAdd
	CallbackAdminEdit       = keyboard.UniqueAdminEdit
	CallbackAdminField      = keyboard.UniqueAdminField
	CallbackAdminDelete     = keyboard.UniqueAdminDelete
	CallbackAdminDeleteOK   = keyboard.UniqueAdminDeleteOK
	CallbackAdminCache      = keyboard.UniqueAdminCache
	CallbackAdminStats      = keyboard.UniqueAdminStats
	CallbackAdminBroadcast  = keyboard.UniqueAdminBroadcast
	CallbackBroadcastSend   = keyboard.UniqueBroadcastSend
	CallbackBroadcastCancel = keyboard.UniqueBroadcastCancel
)
