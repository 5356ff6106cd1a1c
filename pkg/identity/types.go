package identity

import "time"

// ProviderType represents the identity provider protocol
type ProviderType string

const (
	ProviderTypeOIDC ProviderType = "oidc"
	ProviderTypeSAML ProviderType = "saml"
)

// ProviderConfig configures a single identity provider instance. Providers
// are declared in the identity YAML file and reloaded when it changes.
type ProviderConfig struct {
	Name         string       `yaml:"name" json:"name"`
	ProviderType ProviderType `yaml:"type" json:"provider_type"`
	Enabled      bool         `yaml:"enabled" json:"enabled"`

	OIDC *OIDCConfig `yaml:"oidc,omitempty" json:"oidc_config,omitempty"`
	SAML *SAMLConfig `yaml:"saml,omitempty" json:"saml_config,omitempty"`
}

// OIDCConfig holds OpenID Connect configuration
type OIDCConfig struct {
	IssuerURL       string   `yaml:"issuer_url" json:"issuer_url"`
	ClientID        string   `yaml:"client_id" json:"client_id"`
	ClientSecret    string   `yaml:"client_secret" json:"-"` // Never expose secret
	RedirectURL     string   `yaml:"redirect_url" json:"redirect_url"`
	Scopes          []string `yaml:"scopes" json:"scopes"`
	SkipIssuerCheck bool     `yaml:"skip_issuer_check" json:"skip_issuer_check,omitempty"`
}

// SAMLConfig holds SAML 2.0 configuration
type SAMLConfig struct {
	EntityID     string `yaml:"entity_id" json:"entity_id"`
	SSOURL       string `yaml:"sso_url" json:"sso_url"`
	Certificate  string `yaml:"certificate" json:"certificate"` // PEM encoded
	PrivateKey   string `yaml:"private_key" json:"-"`           // Never expose private key
	SignRequests bool   `yaml:"sign_requests" json:"sign_requests"`
	NameIDFormat string `yaml:"name_id_format" json:"name_id_format,omitempty"`
}

// Session is the server-side session record bound to an opaque token. It
// carries only the principal; permissions are re-resolved on every request
// so a session never goes stale on access decisions.
type Session struct {
	TokenHash   string    `json:"-"`
	SubjectID   string    `json:"subject_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Provider    string    `json:"provider"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
