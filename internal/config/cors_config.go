package config

import (
	"sort"
	"strings"
)

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

func (e EnvVars) GetAllowedOrigins() AllowedOrigins {
	origins := make(AllowedOrigins, len(e.AllowedOrigins))
	for _, origin := range e.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins[origin] = nullValue{}
		}
	}
	return origins
}

func (EnvVars) GetAllowedMethods() string {
	return "GET, POST, PUT, OPTIONS"
}

func (EnvVars) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
