package domain

import "math"

// ActionStat holds the per-user counters for one action.
type ActionStat struct {
	UserID        int64
	ActionName    string
	SentCount     int64
	ReceivedCount int64
	AcceptedCount int64
	DeclinedCount int64
}

// ActionCount pairs an action name with a count.
type ActionCount struct {
	Action string
	Count  int64
}

// UserTotal pairs a user with the number of actions they sent.
type UserTotal struct {
	UserID       int64
	TotalActions int64
}

// UserStats summarizes one user's activity.
type UserStats struct {
	UserID         int64
	TotalSent      int64
	TotalReceived  int64
	TotalAccepted  int64
	TotalDeclined  int64
	AcceptanceRate float64
	TopActions     []ActionCount
}

// GlobalStats aggregates counters across every user.
type GlobalStats struct {
	TotalUsers   int64
	TotalActions int64
	Accepted     int64
	Declined     int64
}

// AcceptanceRate returns accepted/sent as a percentage rounded to one decimal, 0 when nothing was sent.
func AcceptanceRate(accepted, sent int64) float64 {
	if sent <= 0 {
		return 0
	}
	return math.Round(float64(accepted)/float64(sent)*1000) / 10
}
