package oidcserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/auth0/go-oidc-server/protocol"
)

// ErrorHandler is called whenever an endpoint or the access token middleware
// rejects a request. err is usually a *protocol.Error carrying the OAuth2
// error code, description and URI; any other error is treated as a
// server_error. If you implement your own ErrorHandler you MUST answer with
// a non-2xx status, otherwise rejected requests will look successful.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// errorResponse is the RFC 6749 §5.2 error body.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

// DefaultErrorHandler writes the error as an RFC 6749 §5.2 JSON body.
//
// invalid_client answers 401 with a Basic challenge when the client tried
// HTTP Basic authentication. invalid_token, insufficient_scope and errors
// whose Challenge is protocol.SchemeBearer carry an RFC 6750 Bearer challenge. Causes of server errors are never written.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	pe := protocol.AsError(err)
	status := pe.HTTPStatus()

	switch {
	case pe.Code == protocol.ErrorInvalidClient:
		if scheme, _, _ := strings.Cut(r.Header.Get("Authorization"), " "); strings.EqualFold(scheme, "basic") {
			w.Header().Set("WWW-Authenticate", `Basic realm="oidc"`)
		}
	case pe.Code == protocol.ErrorInvalidToken,
		pe.Code == protocol.ErrorInsufficientScope,
		pe.Challenge == protocol.SchemeBearer:
		w.Header().Set("WWW-Authenticate", bearerChallenge(pe))
	}

	writeJSON(w, status, errorResponse{
		Error:            pe.Code,
		ErrorDescription: pe.Description,
		ErrorURI:         pe.URI,
	})
}

func bearerChallenge(pe *protocol.Error) string {
	challenge := protocol.SchemeBearer + ` error=` + quoteString(pe.Code)
	if pe.Description != "" {
		challenge += `, error_description=` + quoteString(pe.Description)
	}
	if pe.URI != "" {
		challenge += `, error_uri=` + quoteString(pe.URI)
	}
	return challenge
}

var quotedPairs = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quoteString renders s as an RFC 7230 quoted-string.
func quoteString(s string) string {
	return `"` + quotedPairs.Replace(s) + `"`
}

// writeJSON writes body with the no-store headers required for token and
// error responses.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
