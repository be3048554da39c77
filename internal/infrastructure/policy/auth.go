package policy

import "strings"

// AuthRegistry holds the authentication methods enabled on the site.
type AuthRegistry struct {
	enabled map[string]struct{}
}

func NewAuthRegistry(methods []string) *AuthRegistry {
	enabled := make(map[string]struct{}, len(methods))
	for _, method := range methods {
		method = strings.TrimSpace(method)
		if method != "" {
			enabled[method] = struct{}{}
		}
	}
	return &AuthRegistry{enabled: enabled}
}

func (r *AuthRegistry) IsEnabled(method string) bool {
	_, ok := r.enabled[method]
	return ok
}
