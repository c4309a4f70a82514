package stagez

import (
	"reflect"
	"sync"
)

var (
	// tokenCache stores tokens per type to avoid repeated reflection.
	tokenCache = make(map[reflect.Type]TypeToken)
	// cacheMu protects concurrent access to the token cache.
	cacheMu sync.RWMutex
)

// TypeToken is a reified description of a data type. Tokens are compared when
// endpoints are bound so that a mismatched input or sink is rejected up front
// instead of failing inside the data flow.
//
// The zero TypeToken describes no type and never matches anything.
type TypeToken struct {
	typ reflect.Type
}

// TypeOf returns the token for T. It works for interface types as well:
//
//	stagez.TypeOf[io.Reader]().String() // "io.Reader"
func TypeOf[T any]() TypeToken {
	typ := reflect.TypeFor[T]()

	cacheMu.RLock()
	if token, ok := tokenCache[typ]; ok {
		cacheMu.RUnlock()
		return token
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	// Double-check after acquiring write lock
	if token, ok := tokenCache[typ]; ok {
		return token
	}

	token := TypeToken{typ: typ}
	tokenCache[typ] = token
	return token
}

// TokenOf returns the token for a reflect.Type.
func TokenOf(typ reflect.Type) TypeToken {
	return TypeToken{typ: typ}
}

// Type returns the underlying reflect.Type, or nil for the zero token.
func (t TypeToken) Type() reflect.Type {
	return t.typ
}

// IsZero reports whether the token describes no type.
func (t TypeToken) IsZero() bool {
	return t.typ == nil
}

// Equal reports whether both tokens describe the same type.
func (t TypeToken) Equal(other TypeToken) bool {
	return t.typ != nil && t.typ == other.typ
}

// AssignableTo reports whether values of t can be assigned to other.
func (t TypeToken) AssignableTo(other TypeToken) bool {
	if t.typ == nil || other.typ == nil {
		return false
	}
	return t.typ.AssignableTo(other.typ)
}

// String returns the Go spelling of the type, or "<none>".
func (t TypeToken) String() string {
	if t.typ == nil {
		return "<none>"
	}
	return t.typ.String()
}
