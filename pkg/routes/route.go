// Package routes declares HTTP routes as prefix groups and registers them on a ServeMux.
package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group organizes routes under a common prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux and returns
// the registered patterns in declaration order.
func Register(mux *http.ServeMux, groups ...Group) []string {
	patterns := make([]string, 0)
	for _, group := range groups {
		patterns = registerGroup(mux, "", group, patterns)
	}
	return patterns
}

func registerGroup(mux *http.ServeMux, parentPrefix string, group Group, patterns []string) []string {
	prefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		pattern := route.Method + " " + prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
		patterns = append(patterns, pattern)
	}
	for _, child := range group.Children {
		patterns = registerGroup(mux, prefix, child, patterns)
	}
	return patterns
}
