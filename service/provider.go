package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/internal/dh"
	"github.com/layer-3/garuda/internal/sig"
	"github.com/layer-3/garuda/ports"
)

// Provider answers the two OpenID request kinds: interactive
// authentication (checkid) requests and back-channel (associate,
// check_authentication) requests. It is stateless across requests; all
// shared mutable state lives in the two association stores.
//
// The internal store backs dumb-mode relying parties that verify each
// login through check_authentication; the external store holds secrets
// established via the associate handshake for relying parties that verify
// signatures themselves. Handles from one store are never valid in the
// other.
type Provider struct {
	url      string
	internal ports.AssociationStore
	external ports.AssociationStore
	trust    ports.TrustValidator
	eventPub ports.EventPublisher
}

// NewProvider creates a provider serving checkid requests at url. The
// event publisher may be nil.
func NewProvider(
	url string,
	internal ports.AssociationStore,
	external ports.AssociationStore,
	trust ports.TrustValidator,
	eventPub ports.EventPublisher,
) *Provider {
	return &Provider{
		url:      url,
		internal: internal,
		external: external,
		trust:    trust,
		eventPub: eventPub,
	}
}

// HandleCheckID processes a forward-flow authentication request.
// authorized is supplied by the caller after any interactive approval
// step; the provider never decides authorization itself.
func (p *Provider) HandleCheckID(ctx context.Context, authorized bool, req *core.AuthRequest) core.Outcome {
	if req.Identity == "" {
		return p.checkIDErr(req, core.ErrNoIdentity.Error())
	}

	tr, err := p.trust.Parse(req.TrustRoot)
	if err != nil {
		return p.checkIDErr(req, fmt.Sprintf("malformed trust_root: %s", req.TrustRoot))
	}

	if req.ReturnTo == "" {
		return p.checkIDErr(req, core.ErrNoReturnTo.Error())
	}

	if !tr.ValidateURL(req.ReturnTo) {
		// the error is still redirected to the return_to that just failed
		// validation; relying parties depend on receiving mode=error there
		return p.checkIDErr(req, fmt.Sprintf(
			"return_to(%s) not valid against trust_root(%s)", req.ReturnTo, req.TrustRoot))
	}

	if !authorized {
		switch req.Mode {
		case core.ModeCheckIDImmediate:
			// defer to an interactive round-trip through our own endpoint
			forward := make(core.Fields, len(req.Raw))
			for k, v := range req.Raw {
				forward[k] = v
			}
			forward[core.FieldMode] = core.ModeCheckIDSetup
			return core.Redirect{URL: forward.AppendQuery(p.url)}

		case core.ModeCheckIDSetup:
			resume := req.Raw.AppendQuery(p.url)
			cancel := core.Fields{core.FieldMode: core.ModeCancel}.AppendQuery(req.ReturnTo)
			return core.NeedsApproval{ResumeURL: resume, CancelURL: cancel}

		default:
			return p.checkIDErr(req, fmt.Sprintf("mode (%s) not understood", req.Mode))
		}
	}

	reply := core.NewReply()
	reply.Set(core.FieldMode, core.ModeIDRes)
	reply.Set(core.FieldIdentity, req.Identity)
	reply.Set(core.FieldReturnTo, req.ReturnTo)

	assoc, invalidated, err := p.resolveAssociation(ctx, req.AssocHandle)
	if err != nil {
		return core.Failure{Message: "association store unavailable"}
	}
	if invalidated {
		// the relying party's cached association is stale; tell it so
		reply.Set(core.FieldInvalidateHandle, req.AssocHandle)
		p.notifyInvalidated(ctx, req.AssocHandle)
	}
	reply.Set(core.FieldAssocHandle, assoc.Handle)

	signed, sigValue, err := sig.Sign(sig.AssertionFields, reply.Fields(), assoc.Secret)
	if err != nil {
		return core.Failure{Message: "failed to sign response"}
	}
	reply.Set(core.FieldSigned, signed)
	reply.Set(core.FieldSig, sigValue)

	if p.eventPub != nil {
		if err := p.eventPub.PublishAssertionIssued(ctx, req.Identity, req.ReturnTo, assoc.Handle); err != nil {
			fmt.Printf("Warning: failed to publish assertion event: %v\n", err)
		}
	}

	return core.Redirect{URL: reply.AppendQuery(req.ReturnTo)}
}

// resolveAssociation picks the association that signs an authorized
// response. A caller-supplied external handle is used when live; an
// absent or expired handle falls back to a fresh internal association and
// reports the original handle as invalidated.
func (p *Provider) resolveAssociation(ctx context.Context, handle string) (assoc *core.Association, invalidated bool, err error) {
	if handle != "" {
		found, err := p.external.Lookup(ctx, handle, core.AssocHMACSHA1)
		switch {
		case err == nil && found.ExpiresIn() > 0:
			return found, false, nil
		case err == nil:
			// present but expired: clean it up before falling back
			if rmErr := p.external.Remove(ctx, handle); rmErr != nil {
				return nil, false, rmErr
			}
		case !errors.Is(err, core.ErrAssociationNotFound):
			return nil, false, err
		}
		fresh, err := p.internal.Issue(ctx, core.AssocHMACSHA1)
		if err != nil {
			return nil, false, err
		}
		return fresh, true, nil
	}

	fresh, err := p.internal.Issue(ctx, core.AssocHMACSHA1)
	if err != nil {
		return nil, false, err
	}
	return fresh, false, nil
}

// checkIDErr delivers a forward-flow validation error. When the request
// carries a return_to the error rides a redirect there with mode=error,
// even if return_to is the very URL that failed validation; otherwise it
// surfaces as a raw failure.
func (p *Provider) checkIDErr(req *core.AuthRequest, msg string) core.Outcome {
	if req.ReturnTo == "" {
		return core.Failure{Message: msg}
	}
	reply := core.NewReply()
	reply.Set(core.FieldMode, core.ModeError)
	reply.Set("error", msg)
	return core.Redirect{URL: reply.AppendQuery(req.ReturnTo)}
}

// HandleBackchannel processes a back-channel request, dispatching on mode.
func (p *Provider) HandleBackchannel(ctx context.Context, fields core.Fields) core.Outcome {
	if !fields.Has(core.FieldMode) {
		return core.Failure{Message: (&core.MissingFieldError{Field: core.FieldMode}).Error()}
	}
	switch mode := fields.Get(core.FieldMode); mode {
	case core.ModeAssociate:
		return p.associate(ctx, fields)
	case core.ModeCheckAuth:
		return p.checkAuthentication(ctx, fields)
	default:
		return core.Failure{Message: fmt.Sprintf("unrecognized openid.mode (%s)", mode)}
	}
}

// associate establishes a shared secret with a relying party. Without a
// session_type the raw secret rides the (assumed confidential) channel
// base64-encoded; with DH-SHA1 it is XOR-masked under the derived shared
// key and the raw secret never touches the wire.
func (p *Provider) associate(ctx context.Context, fields core.Fields) core.Outcome {
	req := core.ParseAssociateRequest(fields)

	if !core.AssocType(req.AssocType).Supported() {
		return core.Failure{Message: fmt.Sprintf("unable to create an association for type %s", req.AssocType)}
	}

	assoc, err := p.external.Issue(ctx, core.AssocType(req.AssocType))
	if err != nil {
		return core.Failure{Message: fmt.Sprintf("unable to create an association for type %s", req.AssocType)}
	}

	reply := core.NewReply()
	reply.Set(core.FieldAssocType, string(assoc.Type))
	reply.Set(core.FieldAssocHandle, assoc.Handle)
	reply.Set("expires_in", strconv.FormatInt(assoc.ExpiresIn(), 10))

	switch req.SessionType {
	case "":
		reply.Set("mac_key", base64Encode(assoc.Secret))

	case "DH-SHA1":
		if err := req.RequireDH(); err != nil {
			return core.Failure{Message: err.Error()}
		}
		kx, err := dh.FromBase64(req.DHModulus, req.DHGen)
		if err != nil {
			return core.Failure{Message: fmt.Sprintf("invalid DH parameters: %v", err)}
		}
		consumerPublic, err := dh.Base64ToInt(req.DHConsumerPublic)
		if err != nil {
			return core.Failure{Message: fmt.Sprintf("invalid dh_consumer_public: %v", err)}
		}
		shared, err := kx.SharedSecret(consumerPublic)
		if err != nil {
			return core.Failure{Message: fmt.Sprintf("invalid dh_consumer_public: %v", err)}
		}
		encMacKey, err := dh.MaskSecret(assoc.Secret, shared)
		if err != nil {
			return core.Failure{Message: "failed to encrypt mac key"}
		}
		reply.Set(core.FieldSessionType, req.SessionType)
		reply.Set("dh_server_public", dh.IntToBase64(kx.PublicValue()))
		reply.Set("enc_mac_key", base64Encode(encMacKey))

	default:
		return core.Failure{Message: core.ErrUnknownSessionType.Error()}
	}

	return core.OK{Body: reply.KV()}
}

// checkAuthentication verifies a dumb-mode assertion. The signature is
// recomputed over the field list the caller itself names in signed, not
// over the fixed issuing-side set; the protocol requires honoring the
// caller's list even though it permits a narrowed field set. A verified
// association is consumed: replaying the same call reports the handle as
// unknown.
func (p *Provider) checkAuthentication(ctx context.Context, fields core.Fields) core.Outcome {
	req, err := core.ParseCheckAuthRequest(fields)
	if err != nil {
		return core.Failure{Message: err.Error()}
	}

	assoc, err := p.internal.Lookup(ctx, req.AssocHandle, core.AssocHMACSHA1)
	if errors.Is(err, core.ErrAssociationNotFound) {
		return core.Failure{Message: fmt.Sprintf("no secret found for %s", req.AssocHandle)}
	}
	if err != nil {
		return core.Failure{Message: "association store unavailable"}
	}

	reply := core.NewReply()

	if assoc.ExpiresIn() <= 0 {
		if err := p.internal.Remove(ctx, req.AssocHandle); err != nil {
			return core.Failure{Message: "association store unavailable"}
		}
		reply.Set("is_valid", "false")
		return core.OK{Body: reply.KV()}
	}

	payload := make(core.Fields, len(req.Fields))
	for k, v := range req.Fields {
		payload[k] = v
	}
	payload[core.FieldMode] = core.ModeIDRes

	valid, err := sig.Verify(req.SignedFields, payload, assoc.Secret, req.Sig)
	if err != nil {
		var missing *core.MissingFieldError
		if errors.As(err, &missing) {
			return core.Failure{Message: missing.Error()}
		}
		return core.Failure{Message: "signature verification failed"}
	}

	if valid {
		// consume the association; a concurrent call that verified the
		// same handle loses the take and must not also report valid
		if _, err := p.internal.Take(ctx, req.AssocHandle, core.AssocHMACSHA1); err != nil {
			valid = false
		}
	}

	if valid && req.InvalidateHandle != "" {
		// confirm to the relying party that its external handle really is gone
		_, err := p.external.Lookup(ctx, req.InvalidateHandle, core.AssocHMACSHA1)
		if errors.Is(err, core.ErrAssociationNotFound) {
			reply.Set(core.FieldInvalidateHandle, req.InvalidateHandle)
			p.notifyInvalidated(ctx, req.InvalidateHandle)
		}
	}

	reply.Set("is_valid", strconv.FormatBool(valid))
	return core.OK{Body: reply.KV()}
}

func base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func (p *Provider) notifyInvalidated(ctx context.Context, handle string) {
	if p.eventPub == nil {
		return
	}
	if err := p.eventPub.PublishHandleInvalidated(ctx, handle); err != nil {
		fmt.Printf("Warning: failed to publish invalidation event: %v\n", err)
	}
}
