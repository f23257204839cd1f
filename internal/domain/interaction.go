package domain

import "time"

// InteractionStatus is the lifecycle state of an interaction.
type InteractionStatus string

const (
	StatusPending  InteractionStatus = "pending"
	StatusAccepted InteractionStatus = "accepted"
	StatusDeclined InteractionStatus = "declined"
)

// IsTerminal reports whether no further transition is possible.
func (s InteractionStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusDeclined
}

// Decision is the receiver's answer to a proposal.
type Decision bool

const (
	Accept  Decision = true
	Decline Decision = false
)

// Status maps the decision to the terminal status it produces.
func (d Decision) Status() InteractionStatus {
	if d == Accept {
		return StatusAccepted
	}
	return StatusDeclined
}

func (d Decision) String() string {
	return string(d.Status())
}

// Interaction is one persisted sender to receiver decision.
type Interaction struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Action     string
	Status     InteractionStatus
	MessageID  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
