package libsignal

import (
	"errors"
	"fmt"
	"time"
)

var ErrExpiredCertificate = errors.New("expired certificate")

// CertificateValidator checks sealed sender certificates against a deployment
// trust root.
type CertificateValidator struct {
	trustRoot *PublicKey
}

func NewCertificateValidator(trustRoot *PublicKey) *CertificateValidator {
	return &CertificateValidator{trustRoot: trustRoot}
}

func (cv *CertificateValidator) TrustRoot() *PublicKey {
	return cv.trustRoot
}

// Validate walks the certificate chain: the trust root must have signed the
// server certificate, the server certificate's key must have signed the
// sender certificate, and the certificate must not have expired before
// validationTime.
func (cv *CertificateValidator) Validate(certificate *SenderCertificate, validationTime time.Time) error {
	signer := certificate.GetServerCertificate()
	if !cv.trustRoot.Verify(signer.GetCertificate(), signer.GetSignature()) {
		return fmt.Errorf("%w: server certificate not signed by trust root", ErrInvalidCertificate)
	}
	if !signer.GetKey().Verify(certificate.GetCertificate(), certificate.GetSignature()) {
		return fmt.Errorf("%w: sender certificate not signed by server certificate", ErrInvalidCertificate)
	}
	if validationTime.After(certificate.GetExpiration()) {
		return fmt.Errorf("%w: expired at %s", ErrExpiredCertificate, certificate.GetExpiration().UTC().Format(time.RFC3339))
	}
	return nil
}
