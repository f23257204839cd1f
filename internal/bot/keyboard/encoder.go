package keyboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
)

const (
	CallbackDataSeparator  = "|"
	CallbackDataLimitBytes = 64
)

var ErrMalformedProposal = errors.New("malformed proposal payload")

// EncodeCallback joins unique and data. Buttons never carry telebot's Unique field,
// so the router receives this string unchanged.
func EncodeCallback(unique, data string) (string, error) {
	if data == "" {
		if len(unique) > CallbackDataLimitBytes {
			return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(unique))
		}
		return unique, nil
	}

	payload := unique + CallbackDataSeparator + data
	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

func DecodeCallback(callbackData string) (unique, data string, err error) {
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	idx := strings.Index(callbackData, CallbackDataSeparator)
	if idx == -1 {
		return callbackData, "", nil
	}

	return callbackData[:idx], callbackData[idx+len(CallbackDataSeparator):], nil
}

// Proposal is the state carried by the accept/decline buttons of an inline message.
type Proposal struct {
	SenderID int64
	ActionID int64
	Decision domain.Decision
}

// EncodeProposal renders iact|<sender>|<action id>|<1|0>.
func EncodeProposal(p Proposal) (string, error) {
	decision := "0"
	if p.Decision == domain.Accept {
		decision = "1"
	}

	return EncodeCallback(UniqueInteraction, JoinData(
		strconv.FormatInt(p.SenderID, 10),
		strconv.FormatInt(p.ActionID, 10),
		decision,
	))
}

// DecodeProposal parses the data part (after the unique) of a proposal callback.
func DecodeProposal(data string) (Proposal, error) {
	parts := SplitData(data)
	if len(parts) != 3 {
		return Proposal{}, fmt.Errorf("%w: %q", ErrMalformedProposal, data)
	}

	senderID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || senderID <= 0 {
		return Proposal{}, fmt.Errorf("%w: sender %q", ErrMalformedProposal, parts[0])
	}

	actionID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || actionID <= 0 {
		return Proposal{}, fmt.Errorf("%w: action %q", ErrMalformedProposal, parts[1])
	}

	var decision domain.Decision
	switch parts[2] {
	case "1":
		decision = domain.Accept
	case "0":
		decision = domain.Decline
	default:
		return Proposal{}, fmt.Errorf("%w: decision %q", ErrMalformedProposal, parts[2])
	}

	return Proposal{SenderID: senderID, ActionID: actionID, Decision: decision}, nil
}

// JoinData joins payload fields with the callback separator.
func JoinData(parts ...string) string {
	return strings.Join(parts, CallbackDataSeparator)
}

// SplitData is the inverse of JoinData.
func SplitData(data string) []string {
	if data == "" {
		return nil
	}
	return strings.Split(data, CallbackDataSeparator)
}
