package pagination_test

import (
	"net/url"
	"testing"

	"github.com/JaimeStill/orator/pkg/pagination"
)

var cfg = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

func TestPageRequestFromQuery(t *testing.T) {
	tests := []struct {
		name         string
		values       url.Values
		wantPage     int
		wantPageSize int
		wantSearch   bool
	}{
		{"defaults", url.Values{}, 1, 20, false},
		{"explicit", url.Values{"page": {"3"}, "page_size": {"10"}}, 3, 10, false},
		{"clamped", url.Values{"page": {"-1"}, "page_size": {"1000"}}, 1, 100, false},
		{"garbage", url.Values{"page": {"x"}, "page_size": {"y"}}, 1, 20, false},
		{"blank search", url.Values{"search": {"   "}}, 1, 20, false},
		{"search", url.Values{"search": {" ABC "}}, 1, 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := pagination.PageRequestFromQuery(tt.values, cfg)
			if req.Page != tt.wantPage {
				t.Errorf("page: got %d, want %d", req.Page, tt.wantPage)
			}
			if req.PageSize != tt.wantPageSize {
				t.Errorf("page_size: got %d, want %d", req.PageSize, tt.wantPageSize)
			}
			if (req.Search != nil) != tt.wantSearch {
				t.Errorf("search: got %v, want present=%v", req.Search, tt.wantSearch)
			}
		})
	}
}

func TestPageRequestSearchAndSort(t *testing.T) {
	req := pagination.PageRequestFromQuery(url.Values{
		"search": {"ABC"},
		"sort":   {"-CreatedAt"},
	}, cfg)

	if req.Search == nil || *req.Search != "ABC" {
		t.Errorf("search: got %v, want ABC", req.Search)
	}
	if len(req.Sort) != 1 || req.Sort[0].Field != "CreatedAt" || !req.Sort[0].Descending {
		t.Errorf("sort: got %+v", req.Sort)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		wantPages int
		wantNext  bool
	}{
		{"empty", 0, 20, 1, false},
		{"exact", 40, 20, 2, true},
		{"remainder", 41, 20, 3, true},
		{"single page", 5, 20, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := pagination.NewPageResult[string](nil, tt.total, 1, tt.pageSize)
			if res.TotalPages != tt.wantPages {
				t.Errorf("total_pages: got %d, want %d", res.TotalPages, tt.wantPages)
			}
			if res.HasNext != tt.wantNext {
				t.Errorf("has_next: got %v, want %v", res.HasNext, tt.wantNext)
			}
			if res.Data == nil {
				t.Error("data should never be nil")
			}
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_PAGE_MAX", "10")

	c := pagination.Config{DefaultPageSize: 50}
	if err := c.Finalize(&pagination.ConfigEnv{MaxPageSize: "TEST_PAGE_MAX"}); err == nil {
		t.Error("expected error when default exceeds max")
	}

	c = pagination.Config{}
	if err := c.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if c.DefaultPageSize != 20 || c.MaxPageSize != 100 {
		t.Errorf("defaults: got %d/%d, want 20/100", c.DefaultPageSize, c.MaxPageSize)
	}
}

func TestConfigFinalizeRejects(t *testing.T) {
	t.Setenv("TEST_PAGE_DEFAULT", "twenty")

	tests := []struct {
		name string
		cfg  pagination.Config
		env  *pagination.ConfigEnv
	}{
		{"non-integer env", pagination.Config{}, &pagination.ConfigEnv{DefaultPageSize: "TEST_PAGE_DEFAULT"}},
		{"above ceiling", pagination.Config{MaxPageSize: pagination.PageSizeCeiling + 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(tt.env); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
