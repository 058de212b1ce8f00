package models

import "testing"

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		req        PageRequest
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{name: "defaults", req: PageRequest{}, wantPage: 1, wantSize: DefaultPageSize, wantOffset: 0},
		{name: "explicit", req: PageRequest{Page: 3, Size: 10}, wantPage: 3, wantSize: 10, wantOffset: 20},
		{name: "size capped", req: PageRequest{Page: 2, Size: 500}, wantPage: 2, wantSize: MaxPageSize, wantOffset: MaxPageSize},
		{name: "negative page", req: PageRequest{Page: -4, Size: 5}, wantPage: 1, wantSize: 5, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.Normalize()
			if got.Page != tt.wantPage || got.Size != tt.wantSize {
				t.Errorf("Normalize() = %+v, want page %d size %d", got, tt.wantPage, tt.wantSize)
			}
			if off := tt.req.Offset(); off != tt.wantOffset {
				t.Errorf("Offset() = %d, want %d", off, tt.wantOffset)
			}
		})
	}
}

func TestNewPage(t *testing.T) {
	page := NewPage([]int{1, 2}, 5, PageRequest{Page: 1, Size: 2})
	if page.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", page.TotalPages)
	}
	if page.TotalRows != 5 || page.PageSize != 2 || page.Page != 1 {
		t.Errorf("unexpected page metadata: %+v", page)
	}

	empty := NewPage[int](nil, 0, PageRequest{})
	if empty.Items == nil {
		t.Error("empty page should carry a non-nil slice")
	}
	if empty.TotalPages != 0 {
		t.Errorf("expected 0 pages, got %d", empty.TotalPages)
	}
}
