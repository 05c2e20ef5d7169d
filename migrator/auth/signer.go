package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strings"

	"custodian-migrator/migrator/errors"
)

const (
	signerNamespace = "trood.signer"
	HeaderPrefix    = "Service "
)

//Signer derives service tokens of one domain.
type Signer struct {
	domain string
	secret string
}

func NewSigner(domain, secret string) (*Signer, error) {
	if domain == "" {
		return nil, errors.NewConfigurationError(errors.ErrServiceDomainMissing, "SERVICE_DOMAIN is not set")
	}
	if secret == "" {
		return nil, errors.NewConfigurationError(errors.ErrServiceSecretMissing, "SERVICE_AUTH_SECRET is not set")
	}
	return &Signer{domain: domain, secret: secret}, nil
}

//Token returns "<domain>:<signature>".
func (s *Signer) Token() string {
	return s.domain + ":" + sign(s.domain, s.secret)
}

//Header returns the value of the Authorization header.
func (s *Signer) Header() string {
	return HeaderPrefix + s.Token()
}

//Verify checks an Authorization header value issued for any domain with the same secret.
func (s *Signer) Verify(header string) bool {
	if !strings.HasPrefix(header, HeaderPrefix) {
		return false
	}
	return CheckServiceToken(strings.TrimPrefix(header, HeaderPrefix), s.secret)
}

//DeriveToken returns the Authorization header value for the domain.
func DeriveToken(domain, secret string) (string, error) {
	signer, err := NewSigner(domain, secret)
	if err != nil {
		return "", err
	}
	return signer.Header(), nil
}

func CheckServiceToken(token, secret string) bool {
	separator := strings.LastIndex(token, ":")
	if separator <= 0 || secret == "" {
		return false
	}
	domain, signature := token[:separator], token[separator+1:]
	return hmac.Equal([]byte(signature), []byte(sign(domain, secret)))
}

func sign(domain, secret string) string {
	key := sha1.New()
	key.Write([]byte(signerNamespace + secret))

	signature := hmac.New(sha1.New, key.Sum(nil))
	signature.Write([]byte(domain))

	return base64.RawURLEncoding.EncodeToString(signature.Sum(nil))
}
