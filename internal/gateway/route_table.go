// Package gateway is the single public entry point: it identifies the caller,
// checks the access policy and forwards the request to the backend that owns
// the path.
package gateway

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Binding maps one or more path prefixes to a backend target.
type Binding struct {
	Name     string
	Prefixes []string
	Target   *url.URL
}

// Route is a resolved binding together with the prefix that matched.
type Route struct {
	Name   string
	Prefix string
	Target *url.URL
}

// RouteTable resolves request paths by longest matching prefix. It is
// immutable after NewRouteTable returns.
type RouteTable struct {
	routes []Route // longest prefix first
}

// NewRouteTable validates bindings and builds the table. Registration order
// has no effect on matching.
func NewRouteTable(bindings []Binding) (*RouteTable, error) {
	seen := make(map[string]string)
	var routes []Route

	for _, b := range bindings {
		if b.Name == "" {
			return nil, fmt.Errorf("route binding without name")
		}
		if b.Target == nil || b.Target.Scheme == "" || b.Target.Host == "" {
			return nil, fmt.Errorf("route %q: target must be an absolute URL", b.Name)
		}
		if len(b.Prefixes) == 0 {
			return nil, fmt.Errorf("route %q: no prefixes", b.Name)
		}
		for _, raw := range b.Prefixes {
			prefix := NormalizePrefix(raw)
			if prefix == "" {
				return nil, fmt.Errorf("route %q: invalid prefix %q", b.Name, raw)
			}
			if owner, dup := seen[prefix]; dup {
				return nil, fmt.Errorf("prefix %q bound to both %q and %q", prefix, owner, b.Name)
			}
			seen[prefix] = b.Name
			routes = append(routes, Route{Name: b.Name, Prefix: prefix, Target: b.Target})
		}
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return len(routes[i].Prefix) > len(routes[j].Prefix)
	})
	return &RouteTable{routes: routes}, nil
}

// Resolve returns the route with the longest prefix that matches path on a
// segment boundary.
func (t *RouteTable) Resolve(path string) (Route, bool) {
	for _, r := range t.routes {
		if matchesPrefix(path, r.Prefix) {
			return r, true
		}
	}
	return Route{}, false
}

// Routes lists the table longest prefix first.
func (t *RouteTable) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// NormalizePrefix accepts "/api/x", "/api/x/", "/api/x/*" and "/api/x/**"
// and returns "/api/x". It returns "" for prefixes that do not start with "/".
func NormalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		return ""
	}
	p = strings.TrimSuffix(p, "/**")
	p = strings.TrimSuffix(p, "/*")
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

func matchesPrefix(path, prefix string) bool {
	if prefix == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
