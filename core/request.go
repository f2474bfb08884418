package core

import "strings"

// Request field names, without the wire prefix.
const (
	FieldMode             = "mode"
	FieldIdentity         = "identity"
	FieldTrustRoot        = "trust_root"
	FieldReturnTo         = "return_to"
	FieldAssocHandle      = "assoc_handle"
	FieldAssocType        = "assoc_type"
	FieldSessionType      = "session_type"
	FieldDHModulus        = "dh_modulus"
	FieldDHGen            = "dh_gen"
	FieldDHConsumerPublic = "dh_consumer_public"
	FieldSigned           = "signed"
	FieldSig              = "sig"
	FieldInvalidateHandle = "invalidate_handle"
)

// Protocol modes.
const (
	ModeCheckIDImmediate = "checkid_immediate"
	ModeCheckIDSetup     = "checkid_setup"
	ModeAssociate        = "associate"
	ModeCheckAuth        = "check_authentication"
	ModeIDRes            = "id_res"
	ModeCancel           = "cancel"
	ModeError            = "error"
)

// AuthRequest is a parsed forward-flow (checkid) request. Raw keeps every
// original field so unauthorized branches can re-encode the request when
// bouncing it back through the provider endpoint.
type AuthRequest struct {
	Mode        string
	Identity    string
	TrustRoot   string
	ReturnTo    string
	AssocHandle string
	Raw         Fields
}

// NewAuthRequest builds an AuthRequest from raw request fields.
func NewAuthRequest(fields Fields) *AuthRequest {
	return &AuthRequest{
		Mode:        fields.Get(FieldMode),
		Identity:    fields.Get(FieldIdentity),
		TrustRoot:   fields.Get(FieldTrustRoot),
		ReturnTo:    fields.Get(FieldReturnTo),
		AssocHandle: fields.Get(FieldAssocHandle),
		Raw:         fields,
	}
}

// AuthData returns the identity and trust root, the pair an approval UI
// presents to the user.
func (r *AuthRequest) AuthData() (identity, trustRoot string) {
	return r.Identity, r.TrustRoot
}

// AssociateRequest is a parsed associate back-channel request.
type AssociateRequest struct {
	AssocType        string
	SessionType      string
	DHModulus        string
	DHGen            string
	DHConsumerPublic string
}

// ParseAssociateRequest extracts an associate request, defaulting
// assoc_type to HMAC-SHA1. DH fields are validated for presence only when
// a DH session type is requested, by the caller.
func ParseAssociateRequest(fields Fields) *AssociateRequest {
	assocType := fields.Get(FieldAssocType)
	if assocType == "" {
		assocType = string(AssocHMACSHA1)
	}
	return &AssociateRequest{
		AssocType:        assocType,
		SessionType:      fields.Get(FieldSessionType),
		DHModulus:        fields.Get(FieldDHModulus),
		DHGen:            fields.Get(FieldDHGen),
		DHConsumerPublic: fields.Get(FieldDHConsumerPublic),
	}
}

// RequireDH checks the three DH fields and returns a MissingFieldError for
// the first absent one.
func (r *AssociateRequest) RequireDH() error {
	if r.DHModulus == "" {
		return &MissingFieldError{Field: FieldDHModulus}
	}
	if r.DHGen == "" {
		return &MissingFieldError{Field: FieldDHGen}
	}
	if r.DHConsumerPublic == "" {
		return &MissingFieldError{Field: FieldDHConsumerPublic}
	}
	return nil
}

// CheckAuthRequest is a parsed check_authentication back-channel request.
// Fields keeps the full request so the signature can be recomputed over
// the caller-supplied signed list.
type CheckAuthRequest struct {
	AssocHandle      string
	Sig              string
	InvalidateHandle string
	SignedFields     []string
	Fields           Fields
}

// ParseCheckAuthRequest extracts a check_authentication request, returning
// a MissingFieldError for the first absent required field.
func ParseCheckAuthRequest(fields Fields) (*CheckAuthRequest, error) {
	for _, name := range []string{FieldAssocHandle, FieldSigned, FieldSig} {
		if !fields.Has(name) {
			return nil, &MissingFieldError{Field: name}
		}
	}
	var signed []string
	for _, name := range strings.Split(strings.TrimSpace(fields.Get(FieldSigned)), ",") {
		if name = strings.TrimSpace(name); name != "" {
			signed = append(signed, name)
		}
	}
	return &CheckAuthRequest{
		AssocHandle:      fields.Get(FieldAssocHandle),
		Sig:              fields.Get(FieldSig),
		InvalidateHandle: fields.Get(FieldInvalidateHandle),
		SignedFields:     signed,
		Fields:           fields,
	}, nil
}
