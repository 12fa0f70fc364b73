package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Getter locates and extracts raw credential material from a request.
//
// Load returns the extracted value, or an *Error of KindNotApplicable when
// the configured location is absent from the request. Getters never panic
// and never return generic errors; absence is a value, not an exception.
type Getter interface {
	Load(r *http.Request) (string, error)
}

// HeaderGetter reads a named HTTP header verbatim.
type HeaderGetter struct {
	// Name is the header to read, e.g. "X-Api-Key".
	Name string
}

func (g HeaderGetter) Load(r *http.Request) (string, error) {
	v := r.Header.Get(g.Name)
	if v == "" {
		return "", NotApplicable(fmt.Sprintf("missing %s header", g.Name))
	}
	return v, nil
}

// AuthHeaderGetter reads the Authorization header and strips an expected
// auth-scheme prefix, e.g. "Basic" or "Bearer". The scheme comparison is
// case-insensitive. A header using a different scheme yields NotApplicable,
// not an error, so MultiBackend can route it to another backend.
type AuthHeaderGetter struct {
	// Scheme is the expected auth scheme, e.g. "Basic".
	Scheme string

	// Header is the header to read. Empty means "Authorization".
	Header string
}

func (g AuthHeaderGetter) Load(r *http.Request) (string, error) {
	name := g.Header
	if name == "" {
		name = "Authorization"
	}
	raw := r.Header.Get(name)
	if raw == "" {
		return "", NotApplicable(fmt.Sprintf("missing %s header", name))
	}

	scheme, value, _ := strings.Cut(raw, " ")
	if !strings.EqualFold(scheme, g.Scheme) {
		return "", NotApplicable(fmt.Sprintf("invalid %s header: must start with %s", name, g.Scheme))
	}
	if value == "" {
		return "", NotApplicable(fmt.Sprintf("invalid %s header: value missing", name))
	}
	if strings.Contains(value, " ") {
		return "", NotApplicable(fmt.Sprintf("invalid %s header: contains extra content", name))
	}
	return value, nil
}

// ParamGetter reads a named query parameter. A parameter that appears more
// than once is rejected as ambiguous.
type ParamGetter struct {
	// Name is the query parameter to read.
	Name string
}

func (g ParamGetter) Load(r *http.Request) (string, error) {
	values, ok := r.URL.Query()[g.Name]
	if !ok || len(values) == 0 || values[0] == "" {
		return "", NotApplicable(fmt.Sprintf("missing %s parameter", g.Name))
	}
	if len(values) > 1 {
		return "", NotApplicable(fmt.Sprintf("invalid %s parameter: multiple values passed", g.Name))
	}
	return values[0], nil
}

// CookieGetter reads a named cookie. A cookie that appears more than once
// is rejected as ambiguous.
type CookieGetter struct {
	// Name is the cookie to read.
	Name string
}

func (g CookieGetter) Load(r *http.Request) (string, error) {
	var values []string
	for _, c := range r.Cookies() {
		if c.Name == g.Name {
			values = append(values, c.Value)
		}
	}
	if len(values) == 0 || values[0] == "" {
		return "", NotApplicable(fmt.Sprintf("missing %s cookie", g.Name))
	}
	if len(values) > 1 {
		return "", NotApplicable(fmt.Sprintf("invalid %s cookie: multiple values passed", g.Name))
	}
	return values[0], nil
}

// MultiGetter combines several getters, useful when a credential can reach
// the server in more than one way (header or query parameter, say). Getters
// are tried in order and the first non-absent value wins; NotApplicable
// results from earlier getters are swallowed.
type MultiGetter struct {
	getters []Getter
}

// NewMultiGetter builds a MultiGetter. At least two getters are required;
// fewer is a configuration mistake reported at setup time.
func NewMultiGetter(getters ...Getter) (*MultiGetter, error) {
	if len(getters) < 2 {
		return nil, fmt.Errorf("auth: MultiGetter needs at least two getters, got %d", len(getters))
	}
	for i, g := range getters {
		if g == nil {
			return nil, fmt.Errorf("auth: MultiGetter getter %d is nil", i)
		}
	}
	return &MultiGetter{getters: append([]Getter(nil), getters...)}, nil
}

func (g *MultiGetter) Load(r *http.Request) (string, error) {
	for _, inner := range g.getters {
		value, err := inner.Load(r)
		if err == nil {
			return value, nil
		}
		if !IsNotApplicable(err) {
			return "", err
		}
	}
	return "", NotApplicable("no authentication information found")
}
