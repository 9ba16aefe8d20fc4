// Package library implements the catalog synchronization engine: the
// transactional upsert of scraped video records, full reconciliation of
// their actress/genre associations, cover acquisition and the listing
// read path.
package library

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/LastNyx/JAVault/internal/models"
	"github.com/LastNyx/JAVault/internal/repository"
)

// CatalogStore is the video persistence surface the service writes through.
// *repository.VideoRepository implements it.
type CatalogStore interface {
	InTx(ctx context.Context, fn func(q repository.Querier) error) error
	Upsert(q repository.Querier, v *models.Video, cover repository.CoverUpdate) error
	GetByCode(code string) (*models.Video, error)
	GetIDByCode(code string) (*uuid.UUID, error)
	DeleteByCode(code string) (*string, error)
	ClearAssociations(q repository.Querier, videoID uuid.UUID, kind repository.ReferenceKind) error
	Link(q repository.Querier, videoID, refID uuid.UUID, kind repository.ReferenceKind) error
	ListFiltered(f *repository.VideoFilter, limit, offset int) ([]*models.Video, error)
	CountFiltered(f *repository.VideoFilter) (int, error)
	LoadAssociations(videos []*models.Video) error
}

type ReferenceStore interface {
	FindOrCreate(q repository.Querier, kind repository.ReferenceKind, name string) (*models.RefEntity, error)
	List(kind repository.ReferenceKind, search string, limit, offset int) ([]*models.RefEntity, error)
}

type LinkStore interface {
	Create(link *models.StreamingLink) error
}

type CoverStore interface {
	Acquire(ctx context.Context, code, remoteURL string) (string, error)
	Retire(localPath string)
}

// Enqueuer schedules a post-commit cover refetch for records whose cover
// download failed during the write.
type Enqueuer interface {
	EnqueueCoverRefetch(code, coverURL string)
}

// Broadcaster pushes catalog change events to connected clients.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

type Service struct {
	catalog CatalogStore
	refs    ReferenceStore
	links   LinkStore
	covers  CoverStore
	queue   Enqueuer
	events  Broadcaster
}

func NewService(catalog CatalogStore, refs ReferenceStore, links LinkStore, covers CoverStore, queue Enqueuer, events Broadcaster) *Service {
	return &Service{catalog: catalog, refs: refs, links: links, covers: covers, queue: queue, events: events}
}

// ──────────────────── Inputs / Results ────────────────────

// UpsertInput is the validated record the extension posts. Rating accepts a
// number or a numeric string.
type UpsertInput struct {
	Code      string      `json:"code"`
	Title     string      `json:"title"`
	Date      string      `json:"date,omitempty"`
	Cover     string      `json:"cover,omitempty"`
	Rating    interface{} `json:"rating,omitempty"`
	URL       string      `json:"url,omitempty"`
	Studio    string      `json:"studio,omitempty"`
	Label     string      `json:"label,omitempty"`
	Genres    []string    `json:"genres,omitempty"`
	Actresses []string    `json:"actresses,omitempty"`
}

type UpsertResult struct {
	OK         bool    `json:"ok"`
	Code       string  `json:"code"`
	LocalCover *string `json:"localCover"`
}

type DeleteResult struct {
	Message string `json:"message"`
}

type ListResult struct {
	Page       *int            `json:"page,omitempty"`
	Limit      *int            `json:"limit,omitempty"`
	Total      int             `json:"total"`
	TotalPages *int            `json:"totalPages,omitempty"`
	Items      []*models.Video `json:"items"`
}

type LinkInput struct {
	Code   string `json:"code"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// ──────────────────── Upsert ────────────────────

// Upsert creates or updates one video keyed by code: cover download first
// (outside the transaction, so store locks never wait on the network), then
// one atomic scope covering studio/label resolution, the row upsert and the
// full association reconciliation. A failed cover download is non-fatal; the
// record is written without it and a refetch task is queued.
func (s *Service) Upsert(ctx context.Context, input UpsertInput) (*UpsertResult, error) {
	if input.Code == "" || input.Title == "" {
		return nil, newError(KindValidation, "missing code or title")
	}

	v := &models.Video{
		ID:    uuid.New(),
		Code:  input.Code,
		Title: input.Title,
	}
	if input.Date != "" {
		date, err := parseDate(input.Date)
		if err != nil {
			return nil, newError(KindValidation, fmt.Sprintf("invalid date %q", input.Date))
		}
		v.ReleaseDate = &date
	}
	if input.Cover != "" {
		v.CoverURL = &input.Cover
	}
	if input.URL != "" {
		v.SourceURL = &input.URL
	}
	rating, err := parseRating(input.Rating)
	if err != nil {
		return nil, newError(KindValidation, "invalid rating")
	}
	v.Rating = rating

	cover := repository.CoverUpdate{Mode: repository.CoverUnchanged}
	var acquired *string
	if input.Cover != "" {
		path, err := s.covers.Acquire(ctx, input.Code, input.Cover)
		if err != nil {
			log.Printf("library: cover download failed for %s: %v", input.Code, err)
			if s.queue != nil {
				s.queue.EnqueueCoverRefetch(input.Code, input.Cover)
			}
		} else {
			cover = repository.CoverUpdate{Mode: repository.CoverSet, Path: path}
			acquired = &path
		}
	}

	err = s.catalog.InTx(ctx, func(q repository.Querier) error {
		studio, err := s.refs.FindOrCreate(q, repository.KindStudio, input.Studio)
		if err != nil {
			return err
		}
		if studio != nil {
			v.StudioID = &studio.ID
		}
		label, err := s.refs.FindOrCreate(q, repository.KindLabel, input.Label)
		if err != nil {
			return err
		}
		if label != nil {
			v.LabelID = &label.ID
		}

		if err := s.catalog.Upsert(q, v, cover); err != nil {
			return err
		}
		return s.reconcile(q, v.ID, input.Actresses, input.Genres)
	})
	if err != nil {
		return nil, Classify(err)
	}

	if s.events != nil {
		s.events.Broadcast("video:upserted", map[string]string{"code": v.Code})
	}
	return &UpsertResult{OK: true, Code: v.Code, LocalCover: acquired}, nil
}

// reconcile replaces the full association set of each kind with the
// deduplicated input names. It must run inside the same transaction as the
// row upsert, so readers never observe the emptied window.
func (s *Service) reconcile(q repository.Querier, videoID uuid.UUID, actresses, genres []string) error {
	sets := []struct {
		kind  repository.ReferenceKind
		names []string
	}{
		{repository.KindActress, actresses},
		{repository.KindGenre, genres},
	}
	for _, set := range sets {
		if err := s.catalog.ClearAssociations(q, videoID, set.kind); err != nil {
			return err
		}
		for _, name := range dedup(set.names) {
			ref, err := s.refs.FindOrCreate(q, set.kind, name)
			if err != nil {
				return err
			}
			if ref == nil {
				continue
			}
			if err := s.catalog.Link(q, videoID, ref.ID, set.kind); err != nil {
				return err
			}
		}
	}
	return nil
}

// ──────────────────── Reads ────────────────────

func (s *Service) Get(ctx context.Context, code string) (*models.Video, error) {
	v, err := s.catalog.GetByCode(code)
	if err != nil {
		return nil, Classify(err)
	}
	return v, nil
}

// List runs the filtered, sorted, optionally paginated listing. With
// pagination disabled the response carries only the total and the full
// item set.
func (s *Service) List(ctx context.Context, values url.Values) (*ListResult, error) {
	params := ParseListParams(values)

	limit, offset := params.Limit, params.Skip()
	if !params.Paginate {
		limit, offset = -1, 0
	}

	items, err := s.catalog.ListFiltered(&params.Filter, limit, offset)
	if err != nil {
		return nil, Classify(err)
	}
	total, err := s.catalog.CountFiltered(&params.Filter)
	if err != nil {
		return nil, Classify(err)
	}
	if err := s.catalog.LoadAssociations(items); err != nil {
		return nil, Classify(err)
	}
	if items == nil {
		items = []*models.Video{}
	}

	result := &ListResult{Total: total, Items: items}
	if params.Paginate {
		page, limit := params.Page, params.Limit
		totalPages := (total + limit - 1) / limit
		result.Page = &page
		result.Limit = &limit
		result.TotalPages = &totalPages
	}
	return result, nil
}

// ListReferences returns one reference table's rows, paginated the same way
// as the video listing, for filter pickers and autocomplete.
func (s *Service) ListReferences(ctx context.Context, kind repository.ReferenceKind, values url.Values) ([]*models.RefEntity, error) {
	params := ParseListParams(values)
	search := values.Get("query")

	refs, err := s.refs.List(kind, search, params.Limit, params.Skip())
	if err != nil {
		return nil, Classify(err)
	}
	if refs == nil {
		refs = []*models.RefEntity{}
	}
	return refs, nil
}

// ──────────────────── Delete ────────────────────

// Delete removes the record by code; association rows cascade in the store.
// The cover file is retired after the authoritative row delete, so a crash
// between the two steps can orphan a file but never a row.
func (s *Service) Delete(ctx context.Context, code string) (*DeleteResult, error) {
	localCover, err := s.catalog.DeleteByCode(code)
	if err != nil {
		return nil, Classify(err)
	}
	if localCover != nil {
		s.covers.Retire(*localCover)
	}
	if s.events != nil {
		s.events.Broadcast("video:deleted", map[string]string{"code": code})
	}
	return &DeleteResult{Message: fmt.Sprintf("%s successfully deleted!", code)}, nil
}

// ──────────────────── Streaming Links ────────────────────

// BindLink stores a streaming link, attaching it to the video with the same
// code when one exists. A missing video is not an error; the link keeps a
// null video id and can be claimed later.
func (s *Service) BindLink(ctx context.Context, input LinkInput) (*models.StreamingLink, error) {
	if input.Code == "" || input.URL == "" || input.Source == "" {
		return nil, newError(KindValidation, "missing code, url or source")
	}

	videoID, err := s.catalog.GetIDByCode(input.Code)
	if err != nil {
		return nil, Classify(err)
	}

	link := &models.StreamingLink{
		ID:      uuid.New(),
		Code:    input.Code,
		URL:     input.URL,
		Source:  input.Source,
		VideoID: videoID,
	}
	if err := s.links.Create(link); err != nil {
		return nil, Classify(err)
	}
	return link, nil
}

// ──────────────────── Helpers ────────────────────

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseRating(raw interface{}) (*float64, error) {
	if raw == nil || raw == "" {
		return nil, nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// dedup drops empty names and collapses duplicates, preserving first-seen
// order.
func dedup(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
