// Package sig computes and verifies the keyed digests that authenticate
// provider replies. The digest is an HMAC-SHA1 over the canonical
// concatenation of name:value\n for each signed field, in order.
package sig

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strings"

	"github.com/layer-3/garuda/core"
)

// AssertionFields is the fixed, provider-chosen field set signed on every
// authentication response. Verification of back-channel requests does NOT
// use this set: it honors whatever field list the caller named in its
// signed field, which the protocol requires even though it lets a caller
// narrow the covered set.
var AssertionFields = []string{core.FieldMode, core.FieldIdentity, core.FieldReturnTo}

// Sign computes the digest over the named fields of payload, in order,
// keyed with secret. It returns the comma-joined field list and the
// base64-encoded digest. A field named but absent from payload yields a
// MissingFieldError.
func Sign(names []string, payload core.Fields, secret []byte) (signed, sig string, err error) {
	mac := hmac.New(sha1.New, secret)
	for _, name := range names {
		if !payload.Has(name) {
			return "", "", &core.MissingFieldError{Field: name}
		}
		mac.Write([]byte(name))
		mac.Write([]byte{':'})
		mac.Write([]byte(payload.Get(name)))
		mac.Write([]byte{'\n'})
	}
	return strings.Join(names, ","), base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the digest over the named fields and compares it to
// sig in constant time. An undecodable sig verifies as false, not as an
// error.
func Verify(names []string, payload core.Fields, secret []byte, sig string) (bool, error) {
	_, want, err := Sign(names, payload, secret)
	if err != nil {
		return false, err
	}
	wantRaw, err := base64.StdEncoding.DecodeString(want)
	if err != nil {
		return false, err
	}
	gotRaw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false, nil
	}
	return hmac.Equal(wantRaw, gotRaw), nil
}
