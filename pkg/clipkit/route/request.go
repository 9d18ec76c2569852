package route

import (
	"fmt"
	"net/url"
	"strings"
)

// Request is a parsed activation URL.
type Request struct {
	URL    string            `json:"url"`
	Scheme string            `json:"scheme"`
	Host   string            `json:"host"`
	Path   []string          `json:"path"`
	Query  map[string]string `json:"query"`
}

// FirstSegment returns the dispatch key, or "" for a URL with no path.
func (r Request) FirstSegment() string {
	if len(r.Path) == 0 {
		return ""
	}
	return r.Path[0]
}

// Parse splits an activation URL into scheme, host, path segments and query.
//
// Empty path segments are skipped and each segment is unescaped. Duplicate
// query keys keep their last value; empty keys are dropped.
func Parse(raw string) (Request, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Host == "" {
		return Request{}, fmt.Errorf("%w: missing host in %q", ErrMalformedURL, raw)
	}

	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return Request{}, fmt.Errorf("%w: query: %v", ErrMalformedURL, err)
	}

	query := make(map[string]string, len(values))
	for k, vs := range values {
		if k == "" || len(vs) == 0 {
			continue
		}
		query[k] = vs[len(vs)-1]
	}

	path, err := splitPath(u.EscapedPath())
	if err != nil {
		return Request{}, fmt.Errorf("%w: path: %v", ErrMalformedURL, err)
	}

	return Request{
		URL:    raw,
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Hostname(),
		Path:   path,
		Query:  query,
	}, nil
}

func splitPath(escaped string) ([]string, error) {
	parts := strings.Split(escaped, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		seg, err := url.PathUnescape(p)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}
