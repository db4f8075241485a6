package cache

import (
	"net/url"
)

// QueryKey identifies a fetch by resource class and parameter set.
// It is comparable: two keys built independently from the same resource and
// parameter values are equal with ==, whatever order the parameters came in.
type QueryKey struct {
	Resource string
	params   string
}

// NewQueryKey builds a key from a resource class and its parameters
func NewQueryKey(resource string, params map[string]string) QueryKey {
	values := url.Values{}
	for name, value := range params {
		values.Set(name, value)
	}
	// Encode sorts by parameter name
	return QueryKey{Resource: resource, params: values.Encode()}
}

// Param returns the value of a parameter, or "" when it is not part of the key
func (k QueryKey) Param(name string) string {
	values, err := url.ParseQuery(k.params)
	if err != nil {
		return ""
	}
	return values.Get(name)
}

// Params returns a copy of the key's parameters
func (k QueryKey) Params() map[string]string {
	out := map[string]string{}
	values, err := url.ParseQuery(k.params)
	if err != nil {
		return out
	}
	for name := range values {
		out[name] = values.Get(name)
	}
	return out
}

// IsZero reports whether k is the zero key
func (k QueryKey) IsZero() bool {
	return k == QueryKey{}
}

func (k QueryKey) String() string {
	if k.params == "" {
		return k.Resource
	}
	return k.Resource + "?" + k.params
}
