package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/service"
)

const kvContentType = "text/plain; charset=utf-8"

// CheckIDAuthorizer decides whether the current user agent has already
// approved the authentication request, typically by inspecting a session
// cookie against the request's identity and trust root. The provider core
// never makes this decision itself.
type CheckIDAuthorizer func(c *gin.Context, req *core.AuthRequest) bool

// DenyAll is the default authorizer: every checkid request goes through
// the interactive approval round-trip.
func DenyAll(*gin.Context, *core.AuthRequest) bool { return false }

// ProviderHandlers contains HTTP handlers for the provider endpoints.
type ProviderHandlers struct {
	provider  *service.Provider
	authorize CheckIDAuthorizer
}

// NewProviderHandlers creates handlers around a provider. A nil authorizer
// defaults to DenyAll.
func NewProviderHandlers(provider *service.Provider, authorize CheckIDAuthorizer) *ProviderHandlers {
	if authorize == nil {
		authorize = DenyAll
	}
	return &ProviderHandlers{provider: provider, authorize: authorize}
}

// CheckID handles the forward-flow (GET) authentication endpoint.
func (h *ProviderHandlers) CheckID(c *gin.Context) {
	req := core.NewAuthRequest(parseFields(c.Request.URL.Query()))
	authorized := h.authorize(c, req)

	writeOutcome(c, h.provider.HandleCheckID(c.Request.Context(), authorized, req))
}

// Backchannel handles the POST endpoint for associate and
// check_authentication requests.
func (h *ProviderHandlers) Backchannel(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.Data(http.StatusBadRequest, kvContentType, []byte(core.KVError("malformed request body")))
		return
	}

	writeOutcome(c, h.provider.HandleBackchannel(c.Request.Context(), parseFields(c.Request.PostForm)))
}

// parseFields extracts openid.-prefixed parameters, stripping the prefix.
func parseFields(values url.Values) core.Fields {
	fields := make(core.Fields)
	for key, vals := range values {
		if !strings.HasPrefix(key, core.FieldPrefix) || len(vals) == 0 {
			continue
		}
		fields[strings.TrimPrefix(key, core.FieldPrefix)] = vals[0]
	}
	return fields
}

// writeOutcome maps a provider outcome onto the HTTP response contract:
// redirects become 302s, approval requests return the resume/cancel URL
// pair for the caller's UI, back-channel successes return a 200 KV body,
// and failures a 400 KV body.
func writeOutcome(c *gin.Context, outcome core.Outcome) {
	switch o := outcome.(type) {
	case core.Redirect:
		c.Redirect(http.StatusFound, o.URL)
	case core.NeedsApproval:
		c.JSON(http.StatusOK, gin.H{
			"resume_url": o.ResumeURL,
			"cancel_url": o.CancelURL,
		})
	case core.OK:
		c.Data(http.StatusOK, kvContentType, []byte(o.Body))
	case core.Failure:
		c.Data(http.StatusBadRequest, kvContentType, []byte(o.KV()))
	default:
		c.Data(http.StatusInternalServerError, kvContentType, []byte(core.KVError("unhandled outcome")))
	}
}
