// Package route dispatches activation URLs to registered handlers.
//
// Dispatch is single-level: the first path segment of the URL selects the
// handler, and everything after it (remaining segments, query string) is
// handed to the handler as parameters. It is not a trie matcher and never
// picks between two handlers based on later segments.
//
// A handler may be registered with a pattern such as "/product/:id". The
// first pattern segment is the dispatch key; later segments are literals
// or ":name" captures bound positionally against the request path:
//
//	r := route.New()
//	r.Register("/product/:id", func(ctx context.Context, m route.Match) error {
//		return show(ctx, m.Params["id"], m.Params["ref"])
//	})
//	d, err := r.ProcessDeepLink(ctx, "https://example.com/product/123?ref=qr")
//
// Here the handler sees Params {"id": "123", "ref": "qr"}. Registered
// with RegisterHandler("product", h) instead, the handler sees
// {"ref": "qr"} and finds "123" only in Match.Path.
//
// Parameter merging rules:
//   - duplicate query keys keep the last value
//   - empty keys are dropped
//   - a path capture wins over a query parameter of the same name
//   - if a literal pattern segment after the first does not match the
//     request, no captures bind (Match.PatternMatched is false) and the
//     handler is still invoked
//
// Handlers run on their own goroutine. ProcessDeepLink returns a Dispatch
// handle immediately; callers that need the result wait on it. Panics in
// handlers are recovered and reported as a *DispatchError.
package route
