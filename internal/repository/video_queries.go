package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/LastNyx/JAVault/internal/models"
)

// VideoFilter holds the listing filters. All matches are case-insensitive
// substring; actress/genre are existential over the association set.
type VideoFilter struct {
	Query   string
	Studio  string
	Label   string
	Actress string
	Genre   string
	Sort    string // "date" | "rating" | "title"
	Order   string // "asc" | "desc"
}

// buildVideoFilterClauses builds WHERE and ORDER BY fragments from a
// VideoFilter. paramStart is the next placeholder index.
// Returns (whereSQL, orderSQL, args).
func buildVideoFilterClauses(f *VideoFilter, paramStart int) (string, string, []interface{}) {
	var wheres []string
	var args []interface{}
	p := paramStart

	if f != nil {
		if f.Query != "" {
			wheres = append(wheres, fmt.Sprintf(`(v.code ILIKE $%d OR v.title ILIKE $%d)`, p, p))
			args = append(args, "%"+f.Query+"%")
			p++
		}
		if f.Studio != "" {
			wheres = append(wheres, fmt.Sprintf(
				`EXISTS (SELECT 1 FROM studios s WHERE s.id = v.studio_id AND s.name ILIKE $%d)`, p))
			args = append(args, "%"+f.Studio+"%")
			p++
		}
		if f.Label != "" {
			wheres = append(wheres, fmt.Sprintf(
				`EXISTS (SELECT 1 FROM labels l WHERE l.id = v.label_id AND l.name ILIKE $%d)`, p))
			args = append(args, "%"+f.Label+"%")
			p++
		}
		if f.Actress != "" {
			wheres = append(wheres, fmt.Sprintf(
				`EXISTS (SELECT 1 FROM video_actresses va JOIN actresses a ON a.id = va.actress_id WHERE va.video_id = v.id AND a.name ILIKE $%d)`, p))
			args = append(args, "%"+f.Actress+"%")
			p++
		}
		if f.Genre != "" {
			wheres = append(wheres, fmt.Sprintf(
				`EXISTS (SELECT 1 FROM video_genres vg JOIN genres g ON g.id = vg.genre_id WHERE vg.video_id = v.id AND g.name ILIKE $%d)`, p))
			args = append(args, "%"+f.Genre+"%")
			p++
		}
	}

	whereSQL := ""
	if len(wheres) > 0 {
		whereSQL = " WHERE " + strings.Join(wheres, " AND ")
	}

	orderCol := "v.release_date"
	if f != nil {
		switch f.Sort {
		case "rating":
			orderCol = "v.rating"
		case "title":
			orderCol = "v.title"
		}
	}
	dir := "DESC"
	if f != nil && strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	// Undated/unrated records always sort after the rest; code breaks ties
	// so pages stay stable.
	orderSQL := fmt.Sprintf(" ORDER BY %s %s NULLS LAST, v.code ASC", orderCol, dir)

	return whereSQL, orderSQL, args
}

// ListFiltered returns the filtered, sorted rows. A negative limit disables
// pagination and returns the full filtered set.
func (r *VideoRepository) ListFiltered(f *VideoFilter, limit, offset int) ([]*models.Video, error) {
	whereSQL, orderSQL, args := buildVideoFilterClauses(f, 1)

	query := `SELECT ` + videoColumns + ` FROM videos v` + whereSQL + orderSQL
	if limit >= 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *VideoRepository) CountFiltered(f *VideoFilter) (int, error) {
	whereSQL, _, args := buildVideoFilterClauses(f, 1)
	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM videos v`+whereSQL, args...).Scan(&total)
	return total, err
}

// LoadAssociations fills studio, label, actresses, genres and streaming
// links for a batch of videos in a fixed number of queries.
func (r *VideoRepository) LoadAssociations(videos []*models.Video) error {
	if len(videos) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*models.Video, len(videos))
	videoIDs := make([]string, 0, len(videos))
	refIDSet := make(map[uuid.UUID]bool)
	for _, v := range videos {
		byID[v.ID] = v
		videoIDs = append(videoIDs, v.ID.String())
		v.Actresses = []models.RefEntity{}
		v.Genres = []models.RefEntity{}
		v.StreamingLinks = []models.StreamingLink{}
		if v.StudioID != nil {
			refIDSet[*v.StudioID] = true
		}
		if v.LabelID != nil {
			refIDSet[*v.LabelID] = true
		}
	}

	if err := r.loadJunction(byID, videoIDs, KindActress); err != nil {
		return err
	}
	if err := r.loadJunction(byID, videoIDs, KindGenre); err != nil {
		return err
	}

	// Studios and labels: one lookup per table over the collected ids.
	if len(refIDSet) > 0 {
		refIDs := make([]string, 0, len(refIDSet))
		for id := range refIDSet {
			refIDs = append(refIDs, id.String())
		}
		studios, err := r.loadRefsByID(KindStudio, refIDs)
		if err != nil {
			return err
		}
		labels, err := r.loadRefsByID(KindLabel, refIDs)
		if err != nil {
			return err
		}
		for _, v := range videos {
			if v.StudioID != nil {
				v.Studio = studios[*v.StudioID]
			}
			if v.LabelID != nil {
				v.Label = labels[*v.LabelID]
			}
		}
	}

	// Streaming links
	rows, err := r.db.Query(`SELECT id, code, url, source, video_id, created_at
		FROM streaming_links WHERE video_id = ANY($1::uuid[]) ORDER BY created_at`, pq.Array(videoIDs))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var link models.StreamingLink
		if err := rows.Scan(&link.ID, &link.Code, &link.URL, &link.Source, &link.VideoID, &link.CreatedAt); err != nil {
			return err
		}
		if link.VideoID != nil {
			if v, ok := byID[*link.VideoID]; ok {
				v.StreamingLinks = append(v.StreamingLinks, link)
			}
		}
	}
	return rows.Err()
}

func (r *VideoRepository) loadJunction(byID map[uuid.UUID]*models.Video, videoIDs []string, kind ReferenceKind) error {
	table, column, err := junctionFor(kind)
	if err != nil {
		return err
	}
	query := `SELECT j.video_id, e.id, e.name, e.created_at, e.updated_at
		FROM ` + table + ` j JOIN ` + kind.table() + ` e ON e.id = j.` + column + `
		WHERE j.video_id = ANY($1::uuid[]) ORDER BY e.name`
	rows, err := r.db.Query(query, pq.Array(videoIDs))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var videoID uuid.UUID
		var e models.RefEntity
		if err := rows.Scan(&videoID, &e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return err
		}
		v, ok := byID[videoID]
		if !ok {
			continue
		}
		switch kind {
		case KindActress:
			v.Actresses = append(v.Actresses, e)
		case KindGenre:
			v.Genres = append(v.Genres, e)
		}
	}
	return rows.Err()
}

func (r *VideoRepository) loadRefsByID(kind ReferenceKind, ids []string) (map[uuid.UUID]*models.RefEntity, error) {
	query := `SELECT id, name, created_at, updated_at FROM ` + kind.table() + ` WHERE id = ANY($1::uuid[])`
	rows, err := r.db.Query(query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*models.RefEntity)
	for rows.Next() {
		e := &models.RefEntity{}
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out[e.ID] = e
	}
	return out, rows.Err()
}
