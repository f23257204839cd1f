// Package idempotency makes an operation run at most once per key while its record lives.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// processingTTL bounds how long a crashed holder can block its key.
	processingTTL = 30 * time.Second
	claimAttempts = 3
)

var (
	ErrRequestInProgress = errors.New("request with this key is already in progress")
	// ErrStoreUnavailable wraps failures to reach the record store before fn ran.
	ErrStoreUnavailable = errors.New("idempotency store unavailable")
)

type Operation func(ctx context.Context) (interface{}, error)

// Result is the JSON encoded outcome of an operation.
type Result struct {
	Response  json.RawMessage
	FromCache bool
}

// Decode unmarshals the response into dst. An empty response leaves dst alone.
func (r *Result) Decode(dst interface{}) error {
	if r == nil || len(r.Response) == 0 {
		return nil
	}
	return json.Unmarshal(r.Response, dst)
}

// NewResult wraps value in a Result without storing it.
func NewResult(value interface{}) (*Result, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &Result{Response: data}, nil
}

// Manager runs fn once per key and replays its response for ttl afterwards. A failed fn leaves
// no record, so the next call runs it again. A concurrent call for a key being processed gets
// ErrRequestInProgress.
type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}
	return &manager{store: store, log: log}
}

func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("idempotency: nil operation")
	}

	// A record can expire between the failed claim and the read; claim again then.
	for range claimAttempts {
		claimed, existing, err := m.store.Claim(ctx, key, processingTTL)
		switch {
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		case claimed:
			return m.run(ctx, key, ttl, fn)
		case existing == nil:
			continue
		case existing.Status == StatusCompleted:
			m.log.Debug("idempotent replay", slog.String("key", key))
			return &Result{Response: existing.Response, FromCache: true}, nil
		default:
			return nil, ErrRequestInProgress
		}
	}
	return nil, fmt.Errorf("idempotency: key %s kept changing: %w", key, ErrRequestInProgress)
}

func (m *manager) run(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	value, err := fn(ctx)
	var res *Result
	if err == nil {
		res, err = NewResult(value)
	}
	if err == nil {
		cerr := m.store.Complete(ctx, key, res.Response, ttl)
		if cerr == nil {
			return res, nil
		}
		// fn already took effect; only the replay record is lost.
		m.log.Warn("failed to store idempotent result", slog.String("key", key), slog.Any("error", cerr))
	}

	// Free the key from a context that outlives the request.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if relErr := m.store.Release(releaseCtx, key); relErr != nil {
		m.log.Warn("failed to release idempotency key", slog.String("key", key), slog.Any("error", relErr))
	}
	return res, err
}
