package library

import (
	"net/url"

	"github.com/spf13/cast"

	"github.com/LastNyx/JAVault/internal/repository"
)

const (
	defaultLimit = 30
	maxLimit     = 100
)

// ListParams is the parsed listing request: filters plus pagination.
// When Paginate is false the full filtered set is returned.
type ListParams struct {
	Filter   repository.VideoFilter
	Page     int
	Limit    int
	Paginate bool
}

func (p ListParams) Skip() int {
	return (p.Page - 1) * p.Limit
}

// sortKeys maps the raw sort token to (column key, direction). Anything
// else falls back to date_desc.
var sortKeys = map[string][2]string{
	"rating_desc": {"rating", "desc"},
	"rating_asc":  {"rating", "asc"},
	"date_desc":   {"date", "desc"},
	"date_asc":    {"date", "asc"},
	"title_asc":   {"title", "asc"},
	"title_desc":  {"title", "desc"},
}

// ParseListParams turns raw query parameters into a ListParams. Page floors
// at 1, limit defaults to 30 and clamps to [1,100]; pagination is on unless
// paginate is explicitly false.
func ParseListParams(values url.Values) ListParams {
	page := cast.ToInt(values.Get("page"))
	if page < 1 {
		page = 1
	}
	limit := cast.ToInt(values.Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	paginate := true
	if raw := values.Get("paginate"); raw != "" {
		if v, err := cast.ToBoolE(raw); err == nil {
			paginate = v
		}
	}

	sort, ok := sortKeys[values.Get("sort")]
	if !ok {
		sort = sortKeys["date_desc"]
	}

	return ListParams{
		Filter: repository.VideoFilter{
			Query:   values.Get("query"),
			Studio:  values.Get("studio"),
			Label:   values.Get("label"),
			Actress: values.Get("actress"),
			Genre:   values.Get("genre"),
			Sort:    sort[0],
			Order:   sort[1],
		},
		Page:     page,
		Limit:    limit,
		Paginate: paginate,
	}
}
