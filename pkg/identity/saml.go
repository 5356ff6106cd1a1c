package identity

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"

	saml2 "github.com/russellhaering/gosaml2"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/easternmills/millops/pkg/access"
)

// SAMLProvider implements SAML 2.0 sign-in.
type SAMLProvider struct {
	name string
	sp   *saml2.SAMLServiceProvider
}

// NewSAMLProvider builds a SAML service provider from PEM-encoded IdP
// material.
func NewSAMLProvider(name string, cfg *SAMLConfig, baseURL string) (*SAMLProvider, error) {
	certBlock, _ := pem.Decode([]byte(cfg.Certificate))
	if certBlock == nil {
		return nil, fmt.Errorf("failed to decode certificate PEM")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	certStore := dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	}

	var keyStore dsig.X509KeyStore
	if cfg.PrivateKey != "" {
		keyBlock, _ := pem.Decode([]byte(cfg.PrivateKey))
		if keyBlock == nil {
			return nil, fmt.Errorf("failed to decode private key PEM")
		}
		privateKey, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
		if err != nil {
			pkcs8Key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse private key: %w", err)
			}
			var ok bool
			privateKey, ok = pkcs8Key.(*rsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("private key is not RSA")
			}
		}
		keyStore = &dsig.TLSCertKeyStore{
			PrivateKey:  privateKey,
			Certificate: [][]byte{[]byte(cfg.Certificate)},
		}
	}

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderSSOURL:      cfg.SSOURL,
		IdentityProviderIssuer:      cfg.EntityID,
		ServiceProviderIssuer:       baseURL + "/auth/saml/metadata",
		AssertionConsumerServiceURL: fmt.Sprintf("%s/auth/%s/callback", baseURL, name),
		SignAuthnRequests:           cfg.SignRequests,
		AudienceURI:                 baseURL,
		IDPCertificateStore:         &certStore,
		SPKeyStore:                  keyStore,
	}
	if cfg.NameIDFormat != "" {
		sp.NameIdFormat = cfg.NameIDFormat
	}

	return &SAMLProvider{name: name, sp: sp}, nil
}

// Name returns the provider instance name.
func (p *SAMLProvider) Name() string {
	return p.name
}

// Type returns the provider protocol.
func (p *SAMLProvider) Type() ProviderType {
	return ProviderTypeSAML
}

// InitiateLogin redirects the browser to the IdP.
func (p *SAMLProvider) InitiateLogin(w http.ResponseWriter, r *http.Request, state string) error {
	authURL, err := p.sp.BuildAuthURL(state)
	if err != nil {
		return fmt.Errorf("failed to build auth URL: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "saml_relay_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	http.Redirect(w, r, authURL, http.StatusFound)
	return nil
}

// HandleCallback validates the SAML assertion and extracts the principal.
func (p *SAMLProvider) HandleCallback(w http.ResponseWriter, r *http.Request) (*access.Principal, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}

	samlResponse := r.FormValue("SAMLResponse")
	if samlResponse == "" {
		return nil, fmt.Errorf("missing SAMLResponse parameter")
	}

	assertionBytes, err := base64.StdEncoding.DecodeString(samlResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to decode SAMLResponse: %w", err)
	}

	assertionInfo, err := p.sp.RetrieveAssertionInfo(string(assertionBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to validate assertion: %w", err)
	}
	if assertionInfo.WarningInfo != nil {
		if assertionInfo.WarningInfo.InvalidTime {
			return nil, fmt.Errorf("assertion has invalid time")
		}
		if assertionInfo.WarningInfo.NotInAudience {
			return nil, fmt.Errorf("assertion not in expected audience")
		}
	}

	principal := &access.Principal{
		SubjectID: assertionInfo.NameID,
	}
	for _, attr := range assertionInfo.Values {
		if len(attr.Values) == 0 {
			continue
		}
		switch attr.Name {
		case "email", "mail", "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress":
			principal.Email = attr.Values[0].Value
		case "displayName", "name", "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name":
			principal.DisplayName = attr.Values[0].Value
		}
	}

	if principal.SubjectID == "" {
		return nil, fmt.Errorf("missing NameID in SAML assertion")
	}
	if principal.Email == "" {
		return nil, fmt.Errorf("missing email in SAML assertion")
	}

	return principal, nil
}
