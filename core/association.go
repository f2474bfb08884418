package core

import "time"

// AssocType identifies the signature algorithm an association's secret is
// used with. HMAC-SHA1 is the only type the protocol currently defines.
type AssocType string

const (
	AssocHMACSHA1 AssocType = "HMAC-SHA1"
)

// Supported reports whether the association type can be issued.
func (t AssocType) Supported() bool {
	return t == AssocHMACSHA1
}

// Association is a shared signing secret identified by an opaque handle.
// Handles are unique within the store that issued them; an internal-store
// handle and an external-store handle are never interchangeable.
type Association struct {
	Handle    string    // Opaque unique identifier, issued by a store
	Secret    []byte    // Shared signing key, never transmitted in clear
	Type      AssocType // Signature algorithm the secret belongs to
	ExpiresAt time.Time // When the association stops being usable
}

// ExpiresIn returns the remaining lifetime in whole seconds. A value of
// zero or less means the association is expired and must not be used.
func (a *Association) ExpiresIn() int64 {
	return int64(time.Until(a.ExpiresAt) / time.Second)
}
