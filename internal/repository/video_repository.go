package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/LastNyx/JAVault/internal/models"
)

const videoColumns = `id, code, title, release_date, cover_url, local_cover, rating, source_url, studio_id, label_id, created_at, updated_at`

// CoverMode says what an upsert should do with the stored local cover path
// when the row already exists. The insert path always stores Path for
// CoverSet and NULL otherwise.
type CoverMode int

const (
	CoverUnchanged CoverMode = iota
	CoverSet
	CoverClear
)

type CoverUpdate struct {
	Mode CoverMode
	Path string
}

type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// InTx runs fn inside a transaction; fn's writes commit together or not at all.
func (r *VideoRepository) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVideo(s rowScanner) (*models.Video, error) {
	v := &models.Video{}
	err := s.Scan(&v.ID, &v.Code, &v.Title, &v.ReleaseDate, &v.CoverURL, &v.LocalCover,
		&v.Rating, &v.SourceURL, &v.StudioID, &v.LabelID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Upsert creates or updates the row keyed by code. On update every mutable
// field is overwritten except local_cover, which follows the cover mode.
// The row's id and stored cover path are scanned back into v, so v.ID is
// the existing row's id after an update.
func (r *VideoRepository) Upsert(q Querier, v *models.Video, cover CoverUpdate) error {
	if q == nil {
		q = r.db
	}

	coverExpr := "videos.local_cover"
	var insertCover *string
	switch cover.Mode {
	case CoverSet:
		coverExpr = "EXCLUDED.local_cover"
		insertCover = &cover.Path
	case CoverClear:
		coverExpr = "NULL"
	}

	query := `INSERT INTO videos (id, code, title, release_date, cover_url, local_cover, rating, source_url, studio_id, label_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			title = EXCLUDED.title,
			release_date = EXCLUDED.release_date,
			cover_url = EXCLUDED.cover_url,
			local_cover = ` + coverExpr + `,
			rating = EXCLUDED.rating,
			source_url = EXCLUDED.source_url,
			studio_id = EXCLUDED.studio_id,
			label_id = EXCLUDED.label_id,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, local_cover, created_at, updated_at`
	return q.QueryRow(query, v.ID, v.Code, v.Title, v.ReleaseDate, v.CoverURL, insertCover,
		v.Rating, v.SourceURL, v.StudioID, v.LabelID).
		Scan(&v.ID, &v.LocalCover, &v.CreatedAt, &v.UpdatedAt)
}

func (r *VideoRepository) GetByCode(code string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE code = $1`
	v, err := scanVideo(r.db.QueryRow(query, code))
	if err != nil {
		return nil, err
	}
	if err := r.LoadAssociations([]*models.Video{v}); err != nil {
		return nil, err
	}
	return v, nil
}

// GetIDByCode returns the id for a code, or nil when no such row exists.
func (r *VideoRepository) GetIDByCode(code string) (*uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(`SELECT id FROM videos WHERE code = $1`, code).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// DeleteByCode removes the row and returns its stored local cover path.
// Junction rows cascade via the store's foreign keys. sql.ErrNoRows is
// returned when no row matched.
func (r *VideoRepository) DeleteByCode(code string) (*string, error) {
	var localCover *string
	err := r.db.QueryRow(`DELETE FROM videos WHERE code = $1 RETURNING local_cover`, code).Scan(&localCover)
	if err != nil {
		return nil, err
	}
	return localCover, nil
}

// SetLocalCover updates just the stored cover path; used by the async
// refetch task after the original write already committed.
func (r *VideoRepository) SetLocalCover(code, localCover string) error {
	_, err := r.db.Exec(`UPDATE videos SET local_cover = $1, updated_at = CURRENT_TIMESTAMP WHERE code = $2`,
		localCover, code)
	return err
}

// AllLocalCovers returns every stored cover path; used by the orphan sweeper.
func (r *VideoRepository) AllLocalCovers() ([]string, error) {
	rows, err := r.db.Query(`SELECT local_cover FROM videos WHERE local_cover IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func junctionFor(kind ReferenceKind) (table, column string, err error) {
	switch kind {
	case KindActress:
		return "video_actresses", "actress_id", nil
	case KindGenre:
		return "video_genres", "genre_id", nil
	}
	return "", "", fmt.Errorf("kind %s has no junction table", kind)
}

// ClearAssociations deletes every junction row of one kind for a video.
func (r *VideoRepository) ClearAssociations(q Querier, videoID uuid.UUID, kind ReferenceKind) error {
	table, _, err := junctionFor(kind)
	if err != nil {
		return err
	}
	if q == nil {
		q = r.db
	}
	_, err = q.Exec(`DELETE FROM `+table+` WHERE video_id = $1`, videoID)
	return err
}

// Link inserts one junction row; duplicates are absorbed by the pair's
// unique constraint.
func (r *VideoRepository) Link(q Querier, videoID, refID uuid.UUID, kind ReferenceKind) error {
	table, column, err := junctionFor(kind)
	if err != nil {
		return err
	}
	if q == nil {
		q = r.db
	}
	query := `INSERT INTO ` + table + ` (id, video_id, ` + column + `) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	_, err = q.Exec(query, uuid.New(), videoID, refID)
	return err
}
