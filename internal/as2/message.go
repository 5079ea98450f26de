package as2

import (
	"bufio"
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/textproto"
	"strings"
)

// PackOptions selects the protection applied to an outbound document
type PackOptions struct {
	// Signer signs the document when set
	Signer *KeyPair
	// Recipient encrypts the (signed) document when set
	Recipient *x509.Certificate
	// ContentType of the unprotected document, e.g. application/edi-x12
	ContentType string
}

// Packed is an outbound body ready for the HTTP POST
type Packed struct {
	Body        []byte
	ContentType string
	MIC         string
	Signed      bool
	Encrypted   bool
}

// Pack signs then optionally encrypts content. The MIC is computed over the
// original content before any protection is applied.
func Pack(content []byte, opts PackOptions) (*Packed, error) {
	p := &Packed{
		Body:        content,
		ContentType: opts.ContentType,
		MIC:         ComputeMIC(content),
	}
	if p.ContentType == "" {
		p.ContentType = "application/edi-x12"
	}

	if opts.Signer != nil {
		signed, err := Sign(content, opts.Signer)
		if err != nil {
			return nil, fmt.Errorf("failed to sign: %w", err)
		}
		p.Body, p.ContentType, p.Signed = signed, ContentTypeSigned, true
	}

	if opts.Recipient != nil {
		enveloped, err := Encrypt(p.Body, opts.Recipient)
		if err != nil {
			return nil, err
		}
		p.Body, p.ContentType, p.Encrypted = enveloped, ContentTypeEnveloped, true
	}
	return p, nil
}

// UnpackOptions carries the keys available for an inbound message. Nil keys
// skip the corresponding step.
type UnpackOptions struct {
	Keys         *KeyPair
	PartnerCert  *x509.Certificate
	StrictSigner bool
}

// Unpacked is the recovered plaintext of an inbound message
type Unpacked struct {
	Content     []byte
	ContentType string
	Encrypted   bool
	Decrypted   bool
	Signed      bool
	Verified    bool
	Signer      *x509.Certificate
	MIC         string
}

const maxNesting = 4

// Unpack decrypts and verifies an inbound body according to its content type.
// Encrypted content is left as is when no tenant keys are configured.
func Unpack(contentType string, body []byte, opts UnpackOptions) (*Unpacked, error) {
	u := &Unpacked{}
	if err := unpackEntity(u, contentType, body, opts, 0); err != nil {
		return nil, err
	}
	u.MIC = ComputeMIC(u.Content)
	return u, nil
}

func unpackEntity(u *Unpacked, contentType string, body []byte, opts UnpackOptions, depth int) error {
	if depth > maxNesting {
		return &ProcessingError{Stage: "parse", Err: errors.New("too many nested MIME layers")}
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
		params = map[string]string{}
	}

	switch mediaType {
	case "application/pkcs7-mime", "application/x-pkcs7-mime":
		der, kind := derOrBase64(body)
		if kind == "" {
			kind = strings.ToLower(params["smime-type"])
			if decoded, ok := decodeBase64(body); ok {
				der = decoded
			}
		}
		switch kind {
		case "enveloped-data":
			u.Encrypted = true
			if opts.Keys == nil {
				u.Content, u.ContentType = body, mediaType
				return nil
			}
			plain, err := Decrypt(der, opts.Keys)
			if err != nil {
				return err
			}
			u.Decrypted = true
			return unpackInner(u, plain, opts, depth)
		case "signed-data", "":
			res, err := Verify(der, opts.PartnerCert, opts.StrictSigner)
			if err != nil {
				return err
			}
			u.Signed, u.Verified, u.Signer = true, true, res.Signer
			return unpackInner(u, res.Content, opts, depth)
		default:
			return &ProcessingError{Stage: "parse", Err: fmt.Errorf("unsupported smime-type %q", kind)}
		}

	case "multipart/signed":
		boundary := params["boundary"]
		if boundary == "" {
			return &ProcessingError{Stage: "parse", Err: errors.New("multipart/signed without boundary")}
		}
		parts, err := splitMultipart(body, boundary)
		if err != nil {
			return &ProcessingError{Stage: "parse", Err: err}
		}
		if len(parts) < 2 {
			return &ProcessingError{Stage: "parse", Err: errors.New("multipart/signed needs content and signature parts")}
		}
		sigHeader, sigBody, err := splitEntity(parts[1])
		if err != nil {
			return &ProcessingError{Stage: "parse", Err: err}
		}
		sig, err := decodeTransfer(sigHeader.Get("Content-Transfer-Encoding"), sigBody)
		if err != nil {
			return &ProcessingError{Stage: "verify", Err: err}
		}
		sig, _ = derOrBase64(sig)
		res, err := VerifyDetached(parts[0], sig, opts.PartnerCert, opts.StrictSigner)
		if err != nil {
			return err
		}
		u.Signed, u.Verified, u.Signer = true, true, res.Signer
		return unpackInner(u, parts[0], opts, depth)

	default:
		u.Content, u.ContentType = body, mediaType
		return nil
	}
}

// unpackInner handles the payload recovered from a PKCS#7 layer: either a
// nested PKCS#7 structure, a MIME entity with headers, or the document itself.
func unpackInner(u *Unpacked, data []byte, opts UnpackOptions, depth int) error {
	if der, kind := derOrBase64(data); kind != "" {
		ct := ContentTypeSigned
		if kind == "enveloped-data" {
			ct = ContentTypeEnveloped
		}
		return unpackEntity(u, ct, der, opts, depth+1)
	}

	if looksLikeEntity(data) {
		header, body, err := splitEntity(data)
		if err == nil && header.Get("Content-Type") != "" {
			decoded, err := decodeTransfer(header.Get("Content-Transfer-Encoding"), body)
			if err != nil {
				return &ProcessingError{Stage: "parse", Err: err}
			}
			return unpackEntity(u, header.Get("Content-Type"), decoded, opts, depth+1)
		}
	}

	u.Content = data
	if u.ContentType == "" {
		u.ContentType = "application/octet-stream"
	}
	return nil
}

func looksLikeEntity(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(bytes.ToLower(head), []byte("content-"))
}

// splitEntity separates MIME headers from the body
func splitEntity(entity []byte) (textproto.MIMEHeader, []byte, error) {
	r := textproto.NewReader(bufio.NewReader(bytes.NewReader(entity)))
	header, err := r.ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("invalid MIME headers: %w", err)
	}

	sep := []byte("\r\n\r\n")
	idx := bytes.Index(entity, sep)
	if alt := bytes.Index(entity, []byte("\n\n")); idx < 0 || (alt >= 0 && alt < idx) {
		idx, sep = alt, []byte("\n\n")
	}
	if idx < 0 {
		return header, nil, nil
	}
	return header, entity[idx+len(sep):], nil
}

// splitMultipart returns the raw bytes of each body part, headers included.
// The raw form is needed because a detached signature covers the exact
// transmitted bytes of the first part.
func splitMultipart(body []byte, boundary string) ([][]byte, error) {
	delim := []byte("--" + boundary)
	var parts [][]byte

	start := bytes.Index(body, delim)
	if start < 0 {
		return nil, errors.New("boundary not found in body")
	}
	for {
		pos := start + len(delim)
		if bytes.HasPrefix(body[pos:], []byte("--")) {
			break
		}
		if nl := bytes.IndexByte(body[pos:], '\n'); nl >= 0 {
			pos += nl + 1
		} else {
			return nil, errors.New("truncated multipart body")
		}
		next := bytes.Index(body[pos:], delim)
		if next < 0 {
			return nil, errors.New("missing closing boundary")
		}
		end := pos + next
		part := body[pos:end]
		part = bytes.TrimSuffix(part, []byte("\n"))
		part = bytes.TrimSuffix(part, []byte("\r"))
		parts = append(parts, part)
		start = end
	}
	return parts, nil
}

func decodeTransfer(encoding string, body []byte) ([]byte, error) {
	if strings.EqualFold(strings.TrimSpace(encoding), "base64") {
		out, ok := decodeBase64(body)
		if !ok {
			return nil, errors.New("invalid base64 content")
		}
		return out, nil
	}
	return body, nil
}
