package route_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/clipkit/pkg/clipkit/route"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantHost  string
		wantPath  []string
		wantQuery map[string]string
	}{
		{
			name:      "product link",
			raw:       "https://example.com/product/123?ref=qr",
			wantHost:  "example.com",
			wantPath:  []string{"product", "123"},
			wantQuery: map[string]string{"ref": "qr"},
		},
		{
			name:      "no path",
			raw:       "https://example.com",
			wantHost:  "example.com",
			wantPath:  []string{},
			wantQuery: map[string]string{},
		},
		{
			name:      "empty segments skipped",
			raw:       "https://example.com//menu///today/",
			wantHost:  "example.com",
			wantPath:  []string{"menu", "today"},
			wantQuery: map[string]string{},
		},
		{
			name:      "duplicate query keys keep last",
			raw:       "https://example.com/order?table=1&table=7",
			wantHost:  "example.com",
			wantPath:  []string{"order"},
			wantQuery: map[string]string{"table": "7"},
		},
		{
			name:      "empty query key dropped",
			raw:       "https://example.com/order?=x&size=L",
			wantHost:  "example.com",
			wantPath:  []string{"order"},
			wantQuery: map[string]string{"size": "L"},
		},
		{
			name:      "escaped segments",
			raw:       "https://example.com/search/coffee%20beans/a%2Fb",
			wantHost:  "example.com",
			wantPath:  []string{"search", "coffee beans", "a/b"},
			wantQuery: map[string]string{},
		},
		{
			name:      "custom scheme and port",
			raw:       "MyClip://shop.example.com:8443/scan",
			wantHost:  "shop.example.com",
			wantPath:  []string{"scan"},
			wantQuery: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := route.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, req.URL)
			assert.Equal(t, tt.wantHost, req.Host)
			assert.Equal(t, tt.wantPath, req.Path)
			assert.Equal(t, tt.wantQuery, req.Query)
		})
	}
}

func TestParse_Scheme(t *testing.T) {
	req, err := route.Parse("MyClip://shop.example.com/scan")
	require.NoError(t, err)
	assert.Equal(t, "myclip", req.Scheme)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no host", raw: "/product/123"},
		{name: "empty", raw: ""},
		{name: "bad query escape", raw: "https://example.com/product?ref=%zz"},
		{name: "unparseable", raw: "https://exa mple.com/product"},
		{name: "missing scheme separator", raw: "://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := route.Parse(tt.raw)
			assert.ErrorIs(t, err, route.ErrMalformedURL)
		})
	}
}

func TestRequest_FirstSegment(t *testing.T) {
	assert.Equal(t, "", route.Request{}.FirstSegment())
	assert.Equal(t, "product", route.Request{Path: []string{"product", "1"}}.FirstSegment())
}
