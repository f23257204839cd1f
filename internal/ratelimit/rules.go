package ratelimit

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Proton-105/cuteforcute-bot/pkg/config"
)

// Rule allows Limit hits per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Scope is one limit applied to an update, keyed so that hits of the same scope share a counter.
type Scope struct {
	Key string
	Rule
}

// Rules holds the parsed limits and the set of exempt users.
type Rules struct {
	perUser  *Rule
	global   *Rule
	commands map[string]Rule

	configured []int64

	mu     sync.RWMutex
	exempt map[int64]struct{}
}

// NewRules parses cfg. Rules with a zero limit or no window are off; a malformed window is an error.
func NewRules(cfg config.RateLimitConfig) (*Rules, error) {
	r := &Rules{
		commands:   make(map[string]Rule, len(cfg.Commands)),
		configured: slices.Clone(cfg.Whitelist),
		exempt:     make(map[int64]struct{}, len(cfg.Whitelist)),
	}

	var err error
	if r.perUser, err = parseRule("per_user", cfg.PerUser); err != nil {
		return nil, err
	}
	if r.global, err = parseRule("global", cfg.Global); err != nil {
		return nil, err
	}
	for name, raw := range cfg.Commands {
		rule, err := parseRule("commands."+name, raw)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			r.commands[normalizeCommand(name)] = *rule
		}
	}

	r.Exempt(cfg.Whitelist...)
	return r, nil
}

func parseRule(name string, raw config.RateLimitRule) (*Rule, error) {
	if raw.Limit <= 0 || raw.Window == "" {
		return nil, nil
	}
	window, err := time.ParseDuration(raw.Window)
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: window %q: %w", name, raw.Window, err)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit %s: window must be positive, got %s", name, window)
	}
	return &Rule{Limit: raw.Limit, Window: window}, nil
}

func normalizeCommand(command string) string {
	return strings.TrimPrefix(strings.ToLower(command), "/")
}

// Exempt lets ids bypass every limit, e.g. admins granted at runtime.
func (r *Rules) Exempt(ids ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.exempt[id] = struct{}{}
	}
}

// Revoke undoes Exempt. Ids from the configured whitelist stay exempt.
func (r *Rules) Revoke(ids ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if !slices.Contains(r.configured, id) {
			delete(r.exempt, id)
		}
	}
}

func (r *Rules) IsExempt(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.exempt[userID]
	return ok
}

// Scopes lists the limits an update from userID applies to, narrowest first. command may be ""
// or carry a leading slash.
func (r *Rules) Scopes(userID int64, command string) []Scope {
	scopes := make([]Scope, 0, 3)
	if r.perUser != nil {
		scopes = append(scopes, Scope{Key: fmt.Sprintf("user:%d", userID), Rule: *r.perUser})
	}
	if command = normalizeCommand(command); command != "" {
		if rule, ok := r.commands[command]; ok {
			scopes = append(scopes, Scope{Key: fmt.Sprintf("cmd:%s:%d", command, userID), Rule: rule})
		}
	}
	if r.global != nil {
		scopes = append(scopes, Scope{Key: "global", Rule: *r.global})
	}
	return scopes
}
