package as2

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"errors"
	"fmt"

	"go.mozilla.org/pkcs7"
)

const (
	ContentTypeSigned    = `application/pkcs7-mime; smime-type=signed-data; name="smime.p7m"`
	ContentTypeEnveloped = `application/pkcs7-mime; smime-type=enveloped-data; name="smime.p7m"`
	ContentTypeSignature = `application/pkcs7-signature; name="smime.p7s"`
)

func init() {
	pkcs7.ContentEncryptionAlgorithm = pkcs7.EncryptionAlgorithmAES256CBC
}

// ProcessingError is a crypto or message structure failure on an inbound
// message. It always results in a failed MDN.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("as2 %s failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// ErrSignerMismatch is returned by strict verification when the signing
// certificate is not the partner's stored certificate.
var ErrSignerMismatch = errors.New("signer certificate does not match partner certificate")

// Sign wraps content in an opaque SignedData structure (SHA-256, with
// content-type, signing-time and message-digest attributes).
func Sign(content []byte, kp *KeyPair) ([]byte, error) {
	sd, err := newSignedData(content, kp)
	if err != nil {
		return nil, err
	}
	return sd.Finish()
}

// SignDetached produces a detached signature over content
func SignDetached(content []byte, kp *KeyPair) ([]byte, error) {
	sd, err := newSignedData(content, kp)
	if err != nil {
		return nil, err
	}
	sd.Detach()
	return sd.Finish()
}

func newSignedData(content []byte, kp *KeyPair) (*pkcs7.SignedData, error) {
	if kp == nil || kp.Certificate == nil || kp.PrivateKey == nil {
		return nil, errors.New("signing requires a certificate and private key")
	}
	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, fmt.Errorf("failed to create signed data: %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(kp.Certificate, kp.PrivateKey, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("failed to add signer: %w", err)
	}
	return sd, nil
}

// Encrypt wraps data in EnvelopedData addressed to the recipient certificate
func Encrypt(data []byte, recipient *x509.Certificate) ([]byte, error) {
	out, err := pkcs7.Encrypt(data, []*x509.Certificate{recipient})
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	return out, nil
}

// Decrypt opens EnvelopedData with the tenant key pair
func Decrypt(der []byte, kp *KeyPair) ([]byte, error) {
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, &ProcessingError{Stage: "decrypt", Err: err}
	}
	out, err := p7.Decrypt(kp.Certificate, kp.PrivateKey)
	if err != nil {
		return nil, &ProcessingError{Stage: "decrypt", Err: err}
	}
	return out, nil
}

// VerifyResult is the outcome of signature verification
type VerifyResult struct {
	Content []byte
	Signer  *x509.Certificate
}

// Verify checks an opaque SignedData structure and returns its content.
// The signature is checked against the certificate embedded in the message;
// the signer is compared with partnerCert only when strict is set.
func Verify(der []byte, partnerCert *x509.Certificate, strict bool) (*VerifyResult, error) {
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, &ProcessingError{Stage: "verify", Err: err}
	}
	return verifyParsed(p7, partnerCert, strict)
}

// VerifyDetached checks a detached signature over content
func VerifyDetached(content, signature []byte, partnerCert *x509.Certificate, strict bool) (*VerifyResult, error) {
	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return nil, &ProcessingError{Stage: "verify", Err: err}
	}
	p7.Content = content
	return verifyParsed(p7, partnerCert, strict)
}

func verifyParsed(p7 *pkcs7.PKCS7, partnerCert *x509.Certificate, strict bool) (*VerifyResult, error) {
	if err := p7.Verify(); err != nil {
		return nil, &ProcessingError{Stage: "verify", Err: err}
	}
	signer := p7.GetOnlySigner()
	if strict && partnerCert != nil {
		if signer == nil || !bytes.Equal(signer.Raw, partnerCert.Raw) {
			return nil, &ProcessingError{Stage: "verify", Err: ErrSignerMismatch}
		}
	}
	return &VerifyResult{Content: p7.Content, Signer: signer}, nil
}

// pkcs7Kind returns the outer ContentInfo type of a DER structure, or ""
// when data is not PKCS#7.
func pkcs7Kind(data []byte) string {
	var info struct {
		ContentType asn1.ObjectIdentifier
		Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
	}
	if _, err := asn1.Unmarshal(data, &info); err != nil {
		return ""
	}
	switch {
	case info.ContentType.Equal(pkcs7.OIDSignedData):
		return "signed-data"
	case info.ContentType.Equal(pkcs7.OIDEnvelopedData):
		return "enveloped-data"
	}
	return ""
}

// derOrBase64 returns PKCS#7 DER from data that may be base64 encoded.
// data is returned unchanged when no PKCS#7 structure is recognized.
func derOrBase64(data []byte) ([]byte, string) {
	if kind := pkcs7Kind(data); kind != "" {
		return data, kind
	}
	if decoded, ok := decodeBase64(data); ok {
		if kind := pkcs7Kind(decoded); kind != "" {
			return decoded, kind
		}
	}
	return data, ""
}

func decodeBase64(data []byte) ([]byte, bool) {
	decoded, err := base64.StdEncoding.DecodeString(string(stripWhitespace(data)))
	if err != nil || len(decoded) == 0 {
		return nil, false
	}
	return decoded, true
}

func stripWhitespace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		out = append(out, c)
	}
	return out
}
