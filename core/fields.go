package core

import (
	"net/url"
	"sort"
	"strings"
)

// FieldPrefix is prepended to every authentication field on the wire.
// Request parsing strips it and reply encoding adds it back; all field
// names inside the provider are unprefixed.
const FieldPrefix = "openid."

// Fields is a flat view of a request's openid fields, keyed without the
// wire prefix.
type Fields map[string]string

// Get returns the value for name, or "" when absent.
func (f Fields) Get(name string) string {
	return f[name]
}

// Has reports whether name is present, even if empty.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Reply is an ordered field-name to value mapping used to build protocol
// responses. Order matters: signed fields are canonicalized in insertion
// order and KV bodies are emitted in insertion order.
type Reply struct {
	names  []string
	values map[string]string
}

// NewReply returns an empty reply.
func NewReply() *Reply {
	return &Reply{values: make(map[string]string)}
}

// Set adds or replaces a field. A replaced field keeps its original position.
func (r *Reply) Set(name, value string) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// Get returns the value for name, or "" when absent.
func (r *Reply) Get(name string) string {
	return r.values[name]
}

// Fields returns the reply as a flat lookup map.
func (r *Reply) Fields() Fields {
	f := make(Fields, len(r.values))
	for k, v := range r.values {
		f[k] = v
	}
	return f
}

// KV serializes the reply in the key:value wire format, one field per
// line, in insertion order. Values must not contain newlines.
func (r *Reply) KV() string {
	var b strings.Builder
	for _, name := range r.names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(r.values[name])
		b.WriteByte('\n')
	}
	return b.String()
}

// KVError serializes a bare error message in the KV wire format.
func KVError(msg string) string {
	r := NewReply()
	r.Set("error", msg)
	return r.KV()
}

// AppendQuery appends the reply's fields to base as openid.-prefixed query
// parameters, preserving any query already on base.
func (r *Reply) AppendQuery(base string) string {
	return appendQuery(base, r.names, func(name string) string { return r.values[name] })
}

// AppendQuery appends the fields to base as openid.-prefixed query
// parameters, in sorted name order.
func (f Fields) AppendQuery(base string) string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return appendQuery(base, names, func(name string) string { return f[name] })
}

func appendQuery(base string, names []string, value func(string) string) string {
	if len(names) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	for _, name := range names {
		b.WriteString(sep)
		b.WriteString(url.QueryEscape(FieldPrefix + name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value(name)))
		sep = "&"
	}
	return b.String()
}
