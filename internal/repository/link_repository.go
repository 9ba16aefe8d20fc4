package repository

import (
	"database/sql"

	"github.com/LastNyx/JAVault/internal/models"
)

type StreamingLinkRepository struct {
	db *sql.DB
}

func NewStreamingLinkRepository(db *sql.DB) *StreamingLinkRepository {
	return &StreamingLinkRepository{db: db}
}

func (r *StreamingLinkRepository) Create(link *models.StreamingLink) error {
	query := `INSERT INTO streaming_links (id, code, url, source, video_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	return r.db.QueryRow(query, link.ID, link.Code, link.URL, link.Source, link.VideoID).
		Scan(&link.CreatedAt)
}

