/*
Package core provides the decision and serialization contracts shared by every
checkpoint of the authorization server.

The core has no dependency on any transport. The root package builds the
contexts defined here for each checkpoint, runs the embedder's handler
synchronously, and then inspects the outcome.

# Architecture

	┌─────────────────────────────────────────────┐
	│         Server pipeline (root package)      │
	│  token, introspection, resource middleware  │
	└────────────────┬────────────────────────────┘
	                 │ builds one context per checkpoint
	                 ▼
	┌─────────────────────────────────────────────┐
	│          Core (THIS PACKAGE)                │
	│  • Decision (accept / reject state)         │
	│  • ValidatingContext                        │
	│  • (De)SerializationContext                 │
	└────────────────┬────────────────────────────┘
	                 │
	                 ▼
	┌─────────────────────────────────────────────┐
	│          dataformat.DataFormat              │
	│  (JWT, encrypted blob, reference token)     │
	└─────────────────────────────────────────────┘

# Decisions

A Decision starts out not validated. Handlers call Accept or one of the Reject
variants; the most recent call wins:

	c := core.NewValidatingContext(ctx, opts)
	c.RejectWithError("invalid_client")
	c.Accept() // validated, error fields cleared

	c.RejectWithDescription("invalid_grant", "refresh token expired")
	c.IsValidated()      // false
	c.ErrorCode()        // "invalid_grant"
	c.ErrorURI()         // ""

A handler that does nothing leaves the decision not validated, which the
pipeline treats as a rejection. Rejection turns the decision into the
protocol error written to the client:

	if perr := c.Rejection("invalid_request"); perr != nil {
	    // reject the request
	}

# Serialization

SerializationContext and DeserializationContext expose the mutable slots an
embedder may overwrite exactly once per invocation: the DataFormat, the
output token (serialization) and the output ticket (deserialization).
Presenters is a live view over the ticket's ".presenters" property.

	sc := core.NewSerializationContext(ctx, opts, core.RefreshToken, req, resp, t, format)
	sc.SetPresenters([]string{"client-1"})
	token, err := sc.Serialize()

# Context Keys

SetTicket, GetTicket and HasTicket store the validated ticket in a
context.Context using an unexported key type.
*/
package core
