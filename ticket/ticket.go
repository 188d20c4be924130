// Package ticket defines the authentication ticket: an authenticated
// principal plus the string properties the server attaches to it.
//
// Multi-valued facets such as presenters and audiences are stored as JSON
// arrays inside Properties. The accessor methods read and write that map
// directly, so a ticket never carries a second copy of the same facet.
package ticket

import (
	"encoding/json"
	"strconv"
	"time"
)

// Property names used by the server.
const (
	PropertyPresenters   = ".presenters"
	PropertyAudiences    = ".audiences"
	PropertyScopes       = ".scopes"
	PropertyResources    = ".resources"
	PropertyTicketID     = ".ticket_id"
	PropertyTokenUsage   = ".token_usage"
	PropertyConfidential = ".confidential"
)

// Token usages recorded in PropertyTokenUsage.
const (
	UsageAccessToken       = "access_token"
	UsageRefreshToken      = "refresh_token"
	UsageAuthorizationCode = "authorization_code"
	UsageIDToken           = "id_token"
)

// Ticket is an authenticated principal with its claims and properties.
type Ticket struct {
	// Subject identifies the principal (the "sub" claim).
	Subject string `json:"sub"`

	// Claims are opaque to the server core.
	Claims map[string]any `json:"claims,omitempty"`

	// Properties hold server metadata such as presenters and scopes.
	Properties map[string]string `json:"props,omitempty"`

	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`

	AuthenticationScheme string `json:"scheme,omitempty"`
}

// New creates a ticket for subject with empty claims and properties.
func New(subject string) *Ticket {
	return &Ticket{
		Subject:    subject,
		Claims:     make(map[string]any),
		Properties: make(map[string]string),
	}
}

// Clone returns a deep copy of the maps; claim values are copied shallowly.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.Claims = make(map[string]any, len(t.Claims))
	for k, v := range t.Claims {
		c.Claims[k] = v
	}
	c.Properties = make(map[string]string, len(t.Properties))
	for k, v := range t.Properties {
		c.Properties[k] = v
	}
	return &c
}

// Property returns a property value or the empty string.
func (t *Ticket) Property(name string) string {
	if t == nil || t.Properties == nil {
		return ""
	}
	return t.Properties[name]
}

// SetProperty stores a property. The empty string removes it.
func (t *Ticket) SetProperty(name, value string) {
	if value == "" {
		delete(t.Properties, name)
		return
	}
	if t.Properties == nil {
		t.Properties = make(map[string]string)
	}
	t.Properties[name] = value
}

// Presenters returns the client identifiers allowed to present the token.
func (t *Ticket) Presenters() []string { return t.list(PropertyPresenters) }

// SetPresenters replaces the presenters wholesale.
func (t *Ticket) SetPresenters(presenters []string) { t.setList(PropertyPresenters, presenters) }

// HasPresenter reports whether presenter is listed.
func (t *Ticket) HasPresenter(presenter string) bool { return t.contains(PropertyPresenters, presenter) }

// Audiences returns the resource servers the token is intended for.
func (t *Ticket) Audiences() []string { return t.list(PropertyAudiences) }

// SetAudiences replaces the audiences wholesale.
func (t *Ticket) SetAudiences(audiences []string) { t.setList(PropertyAudiences, audiences) }

// HasAudience reports whether audience is listed.
func (t *Ticket) HasAudience(audience string) bool { return t.contains(PropertyAudiences, audience) }

// Scopes returns the granted scopes.
func (t *Ticket) Scopes() []string { return t.list(PropertyScopes) }

// SetScopes replaces the granted scopes wholesale.
func (t *Ticket) SetScopes(scopes []string) { t.setList(PropertyScopes, scopes) }

// HasScope reports whether scope was granted.
func (t *Ticket) HasScope(scope string) bool { return t.contains(PropertyScopes, scope) }

// Resources returns the resource indicators (RFC 8707) of the grant.
func (t *Ticket) Resources() []string { return t.list(PropertyResources) }

// SetResources replaces the resources wholesale.
func (t *Ticket) SetResources(resources []string) { t.setList(PropertyResources, resources) }

// TicketID returns the unique identifier of the ticket.
func (t *Ticket) TicketID() string { return t.Property(PropertyTicketID) }

// SetTicketID sets the unique identifier of the ticket.
func (t *Ticket) SetTicketID(id string) { t.SetProperty(PropertyTicketID, id) }

// TokenUsage returns which kind of token the ticket was serialized as.
func (t *Ticket) TokenUsage() string { return t.Property(PropertyTokenUsage) }

// SetTokenUsage records which kind of token the ticket is serialized as.
func (t *Ticket) SetTokenUsage(usage string) { t.SetProperty(PropertyTokenUsage, usage) }

// IsConfidential reports whether the ticket was issued to a confidential client.
func (t *Ticket) IsConfidential() bool {
	v, _ := strconv.ParseBool(t.Property(PropertyConfidential))
	return v
}

// SetConfidential marks the ticket as issued to a confidential client.
func (t *Ticket) SetConfidential(confidential bool) {
	if !confidential {
		t.SetProperty(PropertyConfidential, "")
		return
	}
	t.SetProperty(PropertyConfidential, "true")
}

// IsExpired reports whether the ticket has an expiry at or before now.
func (t *Ticket) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// list decodes a JSON array property. A malformed value reads as empty.
func (t *Ticket) list(name string) []string {
	raw := t.Property(name)
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func (t *Ticket) setList(name string, values []string) {
	if len(values) == 0 {
		t.SetProperty(name, "")
		return
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return
	}
	t.SetProperty(name, string(raw))
}

func (t *Ticket) contains(name, value string) bool {
	for _, v := range t.list(name) {
		if v == value {
			return true
		}
	}
	return false
}
