package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/LastNyx/JAVault/internal/covers"
	"github.com/LastNyx/JAVault/internal/repository"
)

// ──────── Cover Refetch Handler ────────

// CoverRefetchHandler retries a cover download that failed during the
// original catalog write and applies the path as a compensating update.
type CoverRefetchHandler struct {
	videos *repository.VideoRepository
	covers *covers.Store
}

func NewCoverRefetchHandler(videos *repository.VideoRepository, coverStore *covers.Store) *CoverRefetchHandler {
	return &CoverRefetchHandler{videos: videos, covers: coverStore}
}

func (h *CoverRefetchHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload CoverRefetchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	// The record may have been deleted while the task waited.
	id, err := h.videos.GetIDByCode(payload.Code)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", payload.Code, err)
	}
	if id == nil {
		log.Printf("cover refetch: %s no longer exists, skipping", payload.Code)
		return nil
	}

	path, err := h.covers.Acquire(ctx, payload.Code, payload.CoverURL)
	if err != nil {
		return fmt.Errorf("fetch cover for %s: %w", payload.Code, err)
	}
	if path == "" {
		return nil
	}

	if err := h.videos.SetLocalCover(payload.Code, path); err != nil {
		return fmt.Errorf("store cover path for %s: %w", payload.Code, err)
	}
	log.Printf("cover refetch: stored %s for %s", path, payload.Code)
	return nil
}
