// Package codec holds the JSON encoders used for cache values and snapshots.
//
// Versioned snapshots record the name of the codec that wrote them, and
// restore selects the decoder with ByName. Any Codec used with package
// snapshot must produce JSON.
package codec

import (
	"errors"
	"fmt"
)

// Names of the built-in codecs. They are persisted in snapshot pointers and
// must never change.
const (
	NameJSON   = "json"
	NameGoJSON = "go-json"
)

// ErrUnknownCodec is returned by Resolve for a name no built-in codec has.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec encodes and decodes values. Implementations must be safe for
// concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is used by caches and snapshot stores unless one is configured.
var Default Codec = GoJSON{}

// ByName returns the built-in codec called name.
func ByName(name string) (Codec, bool) {
	switch name {
	case NameJSON:
		return JSON{}, true
	case NameGoJSON:
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Resolve is ByName for persisted names: an empty name yields fallback,
// an unknown one ErrUnknownCodec.
func Resolve(name string, fallback Codec) (Codec, error) {
	if name == "" {
		if fallback == nil {
			fallback = Default
		}
		return fallback, nil
	}
	if c, ok := ByName(name); ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownCodec, name)
}
