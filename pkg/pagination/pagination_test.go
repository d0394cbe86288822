package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/notifications?"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(contextWithQuery(""))
	if p.Limit != DefaultLimit {
		t.Errorf("limit = %d, want default %d", p.Limit, DefaultLimit)
	}
	if p.Offset != 0 {
		t.Errorf("offset = %d, want 0", p.Offset)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := FromContext(contextWithQuery("limit=50&offset=10"))
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("params = %+v, want limit 50 offset 10", p)
	}
}

func TestFromContext_ClampsLimit(t *testing.T) {
	p := FromContext(contextWithQuery("limit=5000"))
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want clamped to %d", p.Limit, MaxLimit)
	}
}

func TestFromContext_NegativeValues(t *testing.T) {
	p := FromContext(contextWithQuery("limit=-5&offset=-2"))
	if p.Limit != DefaultLimit {
		t.Errorf("limit = %d, want default for negative input", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("offset = %d, want 0 for negative input", p.Offset)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	cases := []struct {
		total, limit, offset int
		want                 bool
	}{
		{total: 100, limit: 20, offset: 0, want: true},
		{total: 100, limit: 20, offset: 80, want: false},
		{total: 10, limit: 20, offset: 0, want: false},
		{total: 21, limit: 20, offset: 0, want: true},
	}
	for _, tc := range cases {
		r := NewResponse(nil, tc.total, tc.limit, tc.offset)
		if r.HasMore != tc.want {
			t.Errorf("total=%d limit=%d offset=%d: HasMore = %v, want %v",
				tc.total, tc.limit, tc.offset, r.HasMore, tc.want)
		}
	}
}

func TestOffsets(t *testing.T) {
	p := Params{Limit: 20, Offset: 30}
	if got := p.NextOffset(); got != 50 {
		t.Errorf("NextOffset = %d, want 50", got)
	}
	if got := p.PreviousOffset(); got != 10 {
		t.Errorf("PreviousOffset = %d, want 10", got)
	}

	first := Params{Limit: 20, Offset: 5}
	if got := first.PreviousOffset(); got != 0 {
		t.Errorf("PreviousOffset near start = %d, want 0", got)
	}
}
