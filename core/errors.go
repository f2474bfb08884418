package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoIdentity           = errors.New("no identity specified")
	ErrNoReturnTo           = errors.New("no return_to URL specified")
	ErrMalformedTrustRoot   = errors.New("malformed trust_root")
	ErrUntrustedReturnTo    = errors.New("return_to not valid against trust_root")
	ErrUnknownMode          = errors.New("mode not understood")
	ErrUnsupportedType      = errors.New("unsupported association type")
	ErrUnknownSessionType   = errors.New("session_type must be DH-SHA1")
	ErrAssociationNotFound  = errors.New("association not found")
	ErrAssociationExpired   = errors.New("association expired")
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// MissingFieldError reports a required protocol field that was absent from
// a back-channel request.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("necessary openid argument (%s) missing", e.Field)
}
