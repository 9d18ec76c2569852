package route

import "strings"

// Validator decides whether an activation URL may be dispatched.
// Only the most recently set validator is consulted; compose several
// with AllOf or AnyOf.
type Validator func(req Request) bool

// AllOf accepts a request only if every validator accepts it.
// With no validators it accepts everything.
func AllOf(validators ...Validator) Validator {
	return func(req Request) bool {
		for _, v := range validators {
			if v != nil && !v(req) {
				return false
			}
		}
		return true
	}
}

// AnyOf accepts a request if at least one validator accepts it.
// With no validators it rejects everything.
func AnyOf(validators ...Validator) Validator {
	return func(req Request) bool {
		for _, v := range validators {
			if v != nil && v(req) {
				return true
			}
		}
		return false
	}
}

// RequireScheme accepts requests whose scheme is one of schemes.
func RequireScheme(schemes ...string) Validator {
	return func(req Request) bool {
		for _, s := range schemes {
			if strings.EqualFold(req.Scheme, s) {
				return true
			}
		}
		return false
	}
}

// RequireHost accepts requests whose host is one of hosts or a subdomain
// of a host given with a leading dot (".example.com").
func RequireHost(hosts ...string) Validator {
	return func(req Request) bool {
		host := strings.ToLower(req.Host)
		for _, h := range hosts {
			h = strings.ToLower(h)
			if suffix, ok := strings.CutPrefix(h, "."); ok {
				if host == suffix || strings.HasSuffix(host, h) {
					return true
				}
				continue
			}
			if host == h {
				return true
			}
		}
		return false
	}
}

// RequireQuery accepts requests carrying every one of keys.
func RequireQuery(keys ...string) Validator {
	return func(req Request) bool {
		for _, k := range keys {
			if _, ok := req.Query[k]; !ok {
				return false
			}
		}
		return true
	}
}
