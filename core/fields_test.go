package core

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReply_KVInsertionOrder(t *testing.T) {
	r := NewReply()
	r.Set("assoc_type", "HMAC-SHA1")
	r.Set("assoc_handle", "h1")
	r.Set("expires_in", "1209600")

	assert.Equal(t, "assoc_type:HMAC-SHA1\nassoc_handle:h1\nexpires_in:1209600\n", r.KV())
}

func TestReply_SetReplacesInPlace(t *testing.T) {
	r := NewReply()
	r.Set("mode", "checkid_immediate")
	r.Set("identity", "u")
	r.Set("mode", "checkid_setup")

	assert.Equal(t, "mode:checkid_setup\nidentity:u\n", r.KV())
}

func TestReply_AppendQuery(t *testing.T) {
	r := NewReply()
	r.Set("mode", "id_res")
	r.Set("return_to", "https://rp.example/cb?x=1")

	got := r.AppendQuery("https://rp.example/cb")
	u, err := url.Parse(got)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "id_res", q.Get("openid.mode"))
	assert.Equal(t, "https://rp.example/cb?x=1", q.Get("openid.return_to"))
}

func TestAppendQuery_PreservesExistingQuery(t *testing.T) {
	f := Fields{"mode": "cancel"}

	got := f.AppendQuery("https://rp.example/cb?state=abc")
	u, err := url.Parse(got)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "abc", q.Get("state"))
	assert.Equal(t, "cancel", q.Get("openid.mode"))
}

func TestKVError(t *testing.T) {
	assert.Equal(t, "error:something went wrong\n", KVError("something went wrong"))
}

func TestParseCheckAuthRequest_MissingFields(t *testing.T) {
	_, err := ParseCheckAuthRequest(Fields{"mode": "check_authentication"})
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FieldAssocHandle, missing.Field)

	_, err = ParseCheckAuthRequest(Fields{"assoc_handle": "h"})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FieldSigned, missing.Field)

	_, err = ParseCheckAuthRequest(Fields{"assoc_handle": "h", "signed": "mode"})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FieldSig, missing.Field)
}

func TestParseCheckAuthRequest_SplitsSignedList(t *testing.T) {
	req, err := ParseCheckAuthRequest(Fields{
		"assoc_handle": "h",
		"signed":       " mode,identity,return_to ",
		"sig":          "czln",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mode", "identity", "return_to"}, req.SignedFields)
}

func TestParseAssociateRequest_DefaultsType(t *testing.T) {
	req := ParseAssociateRequest(Fields{"mode": "associate"})
	assert.Equal(t, "HMAC-SHA1", req.AssocType)

	require.Error(t, req.RequireDH())
}
