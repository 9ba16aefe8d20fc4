package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/LastNyx/JAVault/internal/models"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repository methods that accept one run inside the caller's transaction
// when a *sql.Tx is passed.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// ReferenceKind identifies one of the four name-keyed lookup tables.
type ReferenceKind int

const (
	KindStudio ReferenceKind = iota
	KindLabel
	KindActress
	KindGenre
)

func (k ReferenceKind) String() string {
	switch k {
	case KindStudio:
		return "studio"
	case KindLabel:
		return "label"
	case KindActress:
		return "actress"
	case KindGenre:
		return "genre"
	}
	return "unknown"
}

func (k ReferenceKind) table() string {
	switch k {
	case KindStudio:
		return "studios"
	case KindLabel:
		return "labels"
	case KindActress:
		return "actresses"
	case KindGenre:
		return "genres"
	}
	return ""
}

type ReferenceRepository struct {
	db *sql.DB
}

func NewReferenceRepository(db *sql.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// FindOrCreate resolves a name to its row in the kind's table, creating the
// row on first reference. The name is matched byte-exact; no normalization.
// An empty name resolves to nil without touching the store. The upsert form
// makes concurrent resolvers of the same name converge on one row.
func (r *ReferenceRepository) FindOrCreate(q Querier, kind ReferenceKind, name string) (*models.RefEntity, error) {
	if name == "" {
		return nil, nil
	}
	if q == nil {
		q = r.db
	}

	e := &models.RefEntity{}
	query := `INSERT INTO ` + kind.table() + ` (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at, updated_at`
	err := q.QueryRow(query, uuid.New(), name).
		Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns reference rows of one kind, optionally filtered by a
// case-insensitive name substring.
func (r *ReferenceRepository) List(kind ReferenceKind, search string, limit, offset int) ([]*models.RefEntity, error) {
	query := `SELECT id, name, created_at, updated_at FROM ` + kind.table()
	var args []interface{}
	if search != "" {
		query += ` WHERE name ILIKE $1 ORDER BY name LIMIT $2 OFFSET $3`
		args = append(args, "%"+search+"%", limit, offset)
	} else {
		query += ` ORDER BY name LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*models.RefEntity
	for rows.Next() {
		e := &models.RefEntity{}
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}
