package core

// Outcome is the result of handling a provider request. Exactly four
// variants exist; the transport layer maps each one onto HTTP per the
// protocol contract (redirect, approval page, 200 KV body, error body).
type Outcome interface {
	outcome()
}

// Redirect instructs the caller to redirect the user agent to URL. Used
// for authentication results, mode forwarding, and redirectable errors.
type Redirect struct {
	URL string
}

// NeedsApproval asks the caller to render its interactive approval UI.
// On approval the caller re-invokes the checkid flow via ResumeURL with
// authorized set; on refusal it redirects the user agent to CancelURL.
type NeedsApproval struct {
	ResumeURL string
	CancelURL string
}

// OK carries a successful back-channel response body in the KV wire format.
type OK struct {
	Body string
}

// Failure carries a non-redirectable protocol error message. Secrets never
// appear in the message.
type Failure struct {
	Message string
}

func (Redirect) outcome()      {}
func (NeedsApproval) outcome() {}
func (OK) outcome()            {}
func (Failure) outcome()       {}

// KV returns the failure serialized as a KV error body.
func (f Failure) KV() string {
	return KVError(f.Message)
}
