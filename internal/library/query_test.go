package library

import (
	"net/url"
	"testing"
)

func TestParseListParamsDefaults(t *testing.T) {
	p := ParseListParams(url.Values{})
	if p.Page != 1 {
		t.Fatalf("page = %d, want 1", p.Page)
	}
	if p.Limit != 30 {
		t.Fatalf("limit = %d, want 30", p.Limit)
	}
	if !p.Paginate {
		t.Fatalf("paginate should default to true")
	}
	if p.Filter.Sort != "date" || p.Filter.Order != "desc" {
		t.Fatalf("default sort = %s/%s, want date/desc", p.Filter.Sort, p.Filter.Order)
	}
	if p.Skip() != 0 {
		t.Fatalf("skip = %d, want 0", p.Skip())
	}
}

func TestParseListParamsClamps(t *testing.T) {
	tests := []struct {
		page, limit string
		wantPage    int
		wantLimit   int
	}{
		{"0", "0", 1, 30},
		{"-3", "-5", 1, 30},
		{"2", "500", 2, 100},
		{"3", "10", 3, 10},
		{"junk", "junk", 1, 30},
	}
	for _, tt := range tests {
		v := url.Values{}
		v.Set("page", tt.page)
		v.Set("limit", tt.limit)
		p := ParseListParams(v)
		if p.Page != tt.wantPage || p.Limit != tt.wantLimit {
			t.Fatalf("page=%q limit=%q: got %d/%d, want %d/%d",
				tt.page, tt.limit, p.Page, p.Limit, tt.wantPage, tt.wantLimit)
		}
	}
}

func TestParseListParamsSkip(t *testing.T) {
	v := url.Values{}
	v.Set("page", "3")
	v.Set("limit", "25")
	p := ParseListParams(v)
	if p.Skip() != 50 {
		t.Fatalf("skip = %d, want 50", p.Skip())
	}
}

func TestParseListParamsSort(t *testing.T) {
	tests := []struct {
		sort      string
		wantSort  string
		wantOrder string
	}{
		{"rating_desc", "rating", "desc"},
		{"rating_asc", "rating", "asc"},
		{"date_desc", "date", "desc"},
		{"date_asc", "date", "asc"},
		{"title_asc", "title", "asc"},
		{"title_desc", "title", "desc"},
		{"bogus", "date", "desc"},
		{"", "date", "desc"},
	}
	for _, tt := range tests {
		v := url.Values{}
		v.Set("sort", tt.sort)
		p := ParseListParams(v)
		if p.Filter.Sort != tt.wantSort || p.Filter.Order != tt.wantOrder {
			t.Fatalf("sort=%q: got %s/%s, want %s/%s",
				tt.sort, p.Filter.Sort, p.Filter.Order, tt.wantSort, tt.wantOrder)
		}
	}
}

func TestParseListParamsPaginateFlag(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", true},
		{"true", true},
		{"false", false},
		{"nonsense", true},
	}
	for _, tt := range tests {
		v := url.Values{}
		if tt.raw != "" {
			v.Set("paginate", tt.raw)
		}
		if p := ParseListParams(v); p.Paginate != tt.want {
			t.Fatalf("paginate=%q: got %v, want %v", tt.raw, p.Paginate, tt.want)
		}
	}
}

func TestParseListParamsFilters(t *testing.T) {
	v := url.Values{}
	v.Set("query", "abc")
	v.Set("studio", "tokyo")
	v.Set("label", "best")
	v.Set("actress", "yui")
	v.Set("genre", "drama")
	p := ParseListParams(v)
	f := p.Filter
	if f.Query != "abc" || f.Studio != "tokyo" || f.Label != "best" || f.Actress != "yui" || f.Genre != "drama" {
		t.Fatalf("unexpected filter: %+v", f)
	}
}
