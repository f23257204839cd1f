package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Warmer reloads the action catalogue into the cache.
type Warmer interface {
	Warm(ctx context.Context) error
}

type CatalogueWarmHandler struct {
	catalogue Warmer
	log       *slog.Logger
}

func NewCatalogueWarmHandler(catalogue Warmer, log *slog.Logger) *CatalogueWarmHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogueWarmHandler{catalogue: catalogue, log: log}
}

func (h *CatalogueWarmHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	if err := h.catalogue.Warm(ctx); err != nil {
		h.log.ErrorContext(ctx, "catalogue warm-up failed", slog.String("task_type", t.Type()), slog.Any("error", err))
		return err
	}

	h.log.InfoContext(ctx, "catalogue cache warmed", slog.Duration("duration", time.Since(start)))
	return nil
}
