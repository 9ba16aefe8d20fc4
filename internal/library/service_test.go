package library

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"testing"

	"github.com/google/uuid"

	"github.com/LastNyx/JAVault/internal/models"
	"github.com/LastNyx/JAVault/internal/repository"
)

// ──────────────────── Stubs ────────────────────

// stubCatalog is an in-memory CatalogStore. Association semantics mirror the
// store: Link is a no-op for an already-linked pair (unique constraint).
type stubCatalog struct {
	videos map[string]*models.Video
	assocs map[uuid.UUID]map[repository.ReferenceKind][]uuid.UUID

	listItems  []*models.Video
	total      int
	lastFilter *repository.VideoFilter
	lastLimit  int
	lastOffset int
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		videos: make(map[string]*models.Video),
		assocs: make(map[uuid.UUID]map[repository.ReferenceKind][]uuid.UUID),
	}
}

func (s *stubCatalog) InTx(ctx context.Context, fn func(q repository.Querier) error) error {
	return fn(nil)
}

func (s *stubCatalog) Upsert(q repository.Querier, v *models.Video, cover repository.CoverUpdate) error {
	if existing, ok := s.videos[v.Code]; ok {
		v.ID = existing.ID
		switch cover.Mode {
		case repository.CoverUnchanged:
			v.LocalCover = existing.LocalCover
		case repository.CoverSet:
			path := cover.Path
			v.LocalCover = &path
		case repository.CoverClear:
			v.LocalCover = nil
		}
	} else if cover.Mode == repository.CoverSet {
		path := cover.Path
		v.LocalCover = &path
	}
	stored := *v
	s.videos[v.Code] = &stored
	return nil
}

func (s *stubCatalog) GetByCode(code string) (*models.Video, error) {
	v, ok := s.videos[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return v, nil
}

func (s *stubCatalog) GetIDByCode(code string) (*uuid.UUID, error) {
	v, ok := s.videos[code]
	if !ok {
		return nil, nil
	}
	id := v.ID
	return &id, nil
}

func (s *stubCatalog) DeleteByCode(code string) (*string, error) {
	v, ok := s.videos[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(s.videos, code)
	delete(s.assocs, v.ID)
	return v.LocalCover, nil
}

func (s *stubCatalog) ClearAssociations(q repository.Querier, videoID uuid.UUID, kind repository.ReferenceKind) error {
	if m, ok := s.assocs[videoID]; ok {
		delete(m, kind)
	}
	return nil
}

func (s *stubCatalog) Link(q repository.Querier, videoID, refID uuid.UUID, kind repository.ReferenceKind) error {
	m, ok := s.assocs[videoID]
	if !ok {
		m = make(map[repository.ReferenceKind][]uuid.UUID)
		s.assocs[videoID] = m
	}
	for _, id := range m[kind] {
		if id == refID {
			return nil
		}
	}
	m[kind] = append(m[kind], refID)
	return nil
}

func (s *stubCatalog) ListFiltered(f *repository.VideoFilter, limit, offset int) ([]*models.Video, error) {
	s.lastFilter, s.lastLimit, s.lastOffset = f, limit, offset
	return s.listItems, nil
}

func (s *stubCatalog) CountFiltered(f *repository.VideoFilter) (int, error) {
	return s.total, nil
}

func (s *stubCatalog) LoadAssociations(videos []*models.Video) error {
	return nil
}

func (s *stubCatalog) linked(code string, kind repository.ReferenceKind) []uuid.UUID {
	v, ok := s.videos[code]
	if !ok {
		return nil
	}
	return s.assocs[v.ID][kind]
}

type stubRefs struct {
	entities map[repository.ReferenceKind]map[string]*models.RefEntity
}

func newStubRefs() *stubRefs {
	return &stubRefs{entities: make(map[repository.ReferenceKind]map[string]*models.RefEntity)}
}

func (s *stubRefs) List(kind repository.ReferenceKind, search string, limit, offset int) ([]*models.RefEntity, error) {
	var out []*models.RefEntity
	for _, e := range s.entities[kind] {
		out = append(out, e)
	}
	return out, nil
}

func (s *stubRefs) FindOrCreate(q repository.Querier, kind repository.ReferenceKind, name string) (*models.RefEntity, error) {
	if name == "" {
		return nil, nil
	}
	m, ok := s.entities[kind]
	if !ok {
		m = make(map[string]*models.RefEntity)
		s.entities[kind] = m
	}
	if e, ok := m[name]; ok {
		return e, nil
	}
	e := &models.RefEntity{ID: uuid.New(), Name: name}
	m[name] = e
	return e, nil
}

type stubLinks struct {
	created []*models.StreamingLink
}

func (s *stubLinks) Create(link *models.StreamingLink) error {
	s.created = append(s.created, link)
	return nil
}

type stubCovers struct {
	path    string
	err     error
	retired []string
}

func (s *stubCovers) Acquire(ctx context.Context, code, remoteURL string) (string, error) {
	if remoteURL == "" {
		return "", nil
	}
	if s.err != nil {
		return "", s.err
	}
	return s.path, nil
}

func (s *stubCovers) Retire(localPath string) {
	s.retired = append(s.retired, localPath)
}

type stubQueue struct {
	refetches []string
}

func (s *stubQueue) EnqueueCoverRefetch(code, coverURL string) {
	s.refetches = append(s.refetches, code)
}

type fixture struct {
	svc     *Service
	catalog *stubCatalog
	refs    *stubRefs
	links   *stubLinks
	covers  *stubCovers
	queue   *stubQueue
}

func newFixture() *fixture {
	f := &fixture{
		catalog: newStubCatalog(),
		refs:    newStubRefs(),
		links:   &stubLinks{},
		covers:  &stubCovers{path: "/public/covers/TEST_001.jpg"},
		queue:   &stubQueue{},
	}
	f.svc = NewService(f.catalog, f.refs, f.links, f.covers, f.queue, nil)
	return f
}

func errKind(t *testing.T, err error) Kind {
	t.Helper()
	var le *Error
	if !errors.As(err, &le) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	return le.Kind
}

// ──────────────────── Upsert ────────────────────

func TestUpsertRequiresCodeAndTitle(t *testing.T) {
	f := newFixture()
	for _, input := range []UpsertInput{
		{},
		{Code: "TEST-001"},
		{Title: "A Title"},
	} {
		_, err := f.svc.Upsert(context.Background(), input)
		if errKind(t, err) != KindValidation {
			t.Fatalf("input %+v: expected validation error, got %v", input, err)
		}
	}
}

func TestUpsertCreatesRecordAndAssociations(t *testing.T) {
	f := newFixture()
	result, err := f.svc.Upsert(context.Background(), UpsertInput{
		Code:      "TEST-001",
		Title:     "First",
		Studio:    "Tokyo Pictures",
		Label:     "Best Label",
		Actresses: []string{"Alice", "Bea"},
		Genres:    []string{"Drama"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !result.OK || result.Code != "TEST-001" {
		t.Fatalf("unexpected result: %+v", result)
	}

	v := f.catalog.videos["TEST-001"]
	if v == nil {
		t.Fatalf("video was not stored")
	}
	if v.StudioID == nil || v.LabelID == nil {
		t.Fatalf("studio/label should be resolved and linked")
	}
	if got := len(f.catalog.linked("TEST-001", repository.KindActress)); got != 2 {
		t.Fatalf("actress associations = %d, want 2", got)
	}
	if got := len(f.catalog.linked("TEST-001", repository.KindGenre)); got != 1 {
		t.Fatalf("genre associations = %d, want 1", got)
	}
}

func TestUpsertDeduplicatesNames(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Upsert(context.Background(), UpsertInput{
		Code:      "TEST-001",
		Title:     "First",
		Actresses: []string{"Alice", "Alice", "", "Alice"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := len(f.catalog.linked("TEST-001", repository.KindActress)); got != 1 {
		t.Fatalf("actress associations = %d, want 1", got)
	}
}

func TestReupsertReplacesAssociations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Upsert(ctx, UpsertInput{Code: "TEST-001", Title: "First", Actresses: []string{"Alice", "Bea"}}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := f.svc.Upsert(ctx, UpsertInput{Code: "TEST-001", Title: "First", Actresses: []string{"Cara"}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	linked := f.catalog.linked("TEST-001", repository.KindActress)
	if len(linked) != 1 {
		t.Fatalf("actress associations = %d, want 1 after replacement", len(linked))
	}
	cara := f.refs.entities[repository.KindActress]["Cara"]
	if linked[0] != cara.ID {
		t.Fatalf("surviving association is not the new name")
	}
}

func TestReupsertWithoutListsClearsAssociations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Upsert(ctx, UpsertInput{Code: "TEST-001", Title: "First", Actresses: []string{"Alice"}, Genres: []string{"Drama"}}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := f.svc.Upsert(ctx, UpsertInput{Code: "TEST-001", Title: "First"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if got := len(f.catalog.linked("TEST-001", repository.KindActress)); got != 0 {
		t.Fatalf("actress associations = %d, want 0", got)
	}
	if got := len(f.catalog.linked("TEST-001", repository.KindGenre)); got != 0 {
		t.Fatalf("genre associations = %d, want 0", got)
	}
}

func TestUpsertStoresCover(t *testing.T) {
	f := newFixture()
	result, err := f.svc.Upsert(context.Background(), UpsertInput{
		Code:  "TEST-001",
		Title: "First",
		Cover: "http://example.com/cover.jpg",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if result.LocalCover == nil || *result.LocalCover != "/public/covers/TEST_001.jpg" {
		t.Fatalf("result cover = %v", result.LocalCover)
	}
	v := f.catalog.videos["TEST-001"]
	if v.LocalCover == nil || *v.LocalCover != "/public/covers/TEST_001.jpg" {
		t.Fatalf("stored cover = %v", v.LocalCover)
	}
}

func TestUpsertPreservesCoverWhenAbsent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Upsert(ctx, UpsertInput{Code: "TEST-001", Title: "First", Cover: "http://example.com/cover.jpg"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	result, err := f.svc.Upsert(ctx, UpsertInput{Code: "TEST-001", Title: "Retitled"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if result.LocalCover != nil {
		t.Fatalf("no cover was acquired this call, result should carry null")
	}
	v := f.catalog.videos["TEST-001"]
	if v.Title != "Retitled" {
		t.Fatalf("title = %q, want Retitled", v.Title)
	}
	if v.LocalCover == nil || *v.LocalCover != "/public/covers/TEST_001.jpg" {
		t.Fatalf("prior cover should be preserved, got %v", v.LocalCover)
	}
}

func TestUpsertCoverFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.covers.err = errors.New("fetch cover: status 503")

	result, err := f.svc.Upsert(context.Background(), UpsertInput{
		Code:  "TEST-001",
		Title: "First",
		Cover: "http://example.com/cover.jpg",
	})
	if err != nil {
		t.Fatalf("upsert should succeed despite cover failure: %v", err)
	}
	if result.LocalCover != nil {
		t.Fatalf("cover should be null after a failed fetch")
	}
	if f.catalog.videos["TEST-001"] == nil {
		t.Fatalf("record should still be written")
	}
	if len(f.queue.refetches) != 1 || f.queue.refetches[0] != "TEST-001" {
		t.Fatalf("a refetch should be queued, got %v", f.queue.refetches)
	}
}

func TestUpsertRatingCoercion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, raw := range []interface{}{4.5, "4.5"} {
		if _, err := f.svc.Upsert(ctx, UpsertInput{Code: "TEST-001", Title: "First", Rating: raw}); err != nil {
			t.Fatalf("rating %v: %v", raw, err)
		}
		v := f.catalog.videos["TEST-001"]
		if v.Rating == nil || *v.Rating != 4.5 {
			t.Fatalf("rating %v: stored %v", raw, v.Rating)
		}
	}

	_, err := f.svc.Upsert(ctx, UpsertInput{Code: "TEST-002", Title: "Second", Rating: "not a number"})
	if errKind(t, err) != KindValidation {
		t.Fatalf("non-numeric rating should be a validation error, got %v", err)
	}
}

func TestUpsertInvalidDate(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Upsert(context.Background(), UpsertInput{Code: "TEST-001", Title: "First", Date: "someday"})
	if errKind(t, err) != KindValidation {
		t.Fatalf("invalid date should be a validation error, got %v", err)
	}
}

// ──────────────────── Delete ────────────────────

func TestDeleteNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Delete(context.Background(), "MISSING-001")
	if errKind(t, err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.covers.retired) != 0 {
		t.Fatalf("nothing should be retired on a failed delete")
	}
}

func TestDeleteRetiresCover(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Upsert(ctx, UpsertInput{Code: "TEST-001", Title: "First", Cover: "http://example.com/cover.jpg"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	result, err := f.svc.Delete(ctx, "TEST-001")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if result.Message != "TEST-001 successfully deleted!" {
		t.Fatalf("message = %q", result.Message)
	}
	if len(f.covers.retired) != 1 || f.covers.retired[0] != "/public/covers/TEST_001.jpg" {
		t.Fatalf("retired = %v", f.covers.retired)
	}
	if _, err := f.svc.Get(ctx, "TEST-001"); errKind(t, err) != KindNotFound {
		t.Fatalf("record should be gone")
	}
}

// ──────────────────── List ────────────────────

func TestListPagination(t *testing.T) {
	f := newFixture()
	f.catalog.total = 75
	for i := 0; i < 30; i++ {
		f.catalog.listItems = append(f.catalog.listItems, &models.Video{Code: "V-" + strconv.Itoa(i)})
	}

	v := url.Values{}
	v.Set("limit", "30")
	result, err := f.svc.List(context.Background(), v)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 75 {
		t.Fatalf("total = %d, want 75", result.Total)
	}
	if result.TotalPages == nil || *result.TotalPages != 3 {
		t.Fatalf("totalPages = %v, want 3", result.TotalPages)
	}
	if result.Page == nil || *result.Page != 1 || result.Limit == nil || *result.Limit != 30 {
		t.Fatalf("page/limit = %v/%v", result.Page, result.Limit)
	}
	if f.catalog.lastLimit != 30 || f.catalog.lastOffset != 0 {
		t.Fatalf("store queried with limit=%d offset=%d", f.catalog.lastLimit, f.catalog.lastOffset)
	}
}

func TestListUnpaginated(t *testing.T) {
	f := newFixture()
	f.catalog.total = 2
	f.catalog.listItems = []*models.Video{{Code: "A"}, {Code: "B"}}

	v := url.Values{}
	v.Set("paginate", "false")
	result, err := f.svc.List(context.Background(), v)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Page != nil || result.Limit != nil || result.TotalPages != nil {
		t.Fatalf("unpaginated response should omit page/limit/totalPages: %+v", result)
	}
	if len(result.Items) != result.Total {
		t.Fatalf("items = %d, total = %d; want equal", len(result.Items), result.Total)
	}
	if f.catalog.lastLimit != -1 {
		t.Fatalf("store should be queried without a limit, got %d", f.catalog.lastLimit)
	}
}

func TestListEmptyItemsNotNil(t *testing.T) {
	f := newFixture()
	result, err := f.svc.List(context.Background(), url.Values{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Items == nil {
		t.Fatalf("items should be an empty slice, not nil")
	}
}

func TestListReferencesEmptyNotNil(t *testing.T) {
	f := newFixture()
	refs, err := f.svc.ListReferences(context.Background(), repository.KindActress, url.Values{})
	if err != nil {
		t.Fatalf("list references: %v", err)
	}
	if refs == nil {
		t.Fatalf("should be an empty slice, not nil")
	}
}

// ──────────────────── Streaming Links ────────────────────

func TestBindLinkValidation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.BindLink(context.Background(), LinkInput{Code: "TEST-001"})
	if errKind(t, err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBindLinkAttachesToExistingVideo(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Upsert(ctx, UpsertInput{Code: "TEST-001", Title: "First"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	link, err := f.svc.BindLink(ctx, LinkInput{Code: "TEST-001", URL: "http://example.com/watch", Source: "missav"})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if link.VideoID == nil || *link.VideoID != f.catalog.videos["TEST-001"].ID {
		t.Fatalf("link should attach to the existing video")
	}
}

func TestBindLinkWithoutVideoKeepsNullID(t *testing.T) {
	f := newFixture()
	link, err := f.svc.BindLink(context.Background(), LinkInput{Code: "GHOST-001", URL: "http://example.com/watch", Source: "missav"})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if link.VideoID != nil {
		t.Fatalf("link for an unknown code should keep a null video id")
	}
}
