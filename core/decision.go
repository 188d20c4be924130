package core

import "github.com/auth0/go-oidc-server/protocol"

// Decision is the accept/reject state shared by every validating checkpoint.
//
// The zero value is not validated and carries no error information, so a
// checkpoint whose handler never calls Accept or Reject fails closed.
// Decisions are last-write-wins: each call replaces the previous outcome and
// no history is kept.
type Decision struct {
	validated   bool
	code        string
	description string
	uri         string

	guard func() bool
}

// IsValidated reports whether Accept was the most recent successful call.
func (d *Decision) IsValidated() bool { return d.validated }

// ErrorCode is the OAuth2 "error" parameter of the last rejection.
func (d *Decision) ErrorCode() string { return d.code }

// ErrorDescription is the "error_description" parameter of the last rejection.
func (d *Decision) ErrorDescription() string { return d.description }

// ErrorURI is the "error_uri" parameter of the last rejection.
func (d *Decision) ErrorURI() string { return d.uri }

// Accept marks the decision as validated and clears any error information.
// It returns false, leaving the decision untouched, when the checkpoint's
// accept guard refuses.
func (d *Decision) Accept() bool {
	if d.guard != nil && !d.guard() {
		return false
	}
	d.validated = true
	d.code, d.description, d.uri = "", "", ""
	return true
}

// Reject marks the decision as not validated without error information.
func (d *Decision) Reject() {
	d.RejectWithURI("", "", "")
}

// RejectWithError marks the decision as not validated with an error code.
func (d *Decision) RejectWithError(code string) {
	d.RejectWithURI(code, "", "")
}

// RejectWithDescription marks the decision as not validated with an error
// code and a human-readable description.
func (d *Decision) RejectWithDescription(code, description string) {
	d.RejectWithURI(code, description, "")
}

// RejectWithURI marks the decision as not validated and replaces all three
// error fields. Empty arguments leave the matching field unset.
func (d *Decision) RejectWithURI(code, description, uri string) {
	d.validated = false
	d.code = code
	d.description = description
	d.uri = uri
}

// SetAcceptGuard installs a precondition consulted by Accept. Checkpoints use
// it to refuse acceptance until their own fields are consistent. A nil guard
// restores unconditional acceptance.
func (d *Decision) SetAcceptGuard(guard func() bool) {
	d.guard = guard
}

// Rejection converts the decision into a protocol error. It returns nil when
// the decision is validated. defaultCode is used when the handler rejected
// without a code or never decided at all.
func (d *Decision) Rejection(defaultCode string) *protocol.Error {
	if d.validated {
		return nil
	}
	code := d.code
	if code == "" {
		code = defaultCode
	}
	return &protocol.Error{
		Code:        code,
		Description: d.description,
		URI:         d.uri,
	}
}
