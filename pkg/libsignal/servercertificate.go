package libsignal

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrInvalidCertificate = errors.New("invalid certificate")

// Sealed sender certificates share an outer wrapper message: field 1 carries
// the serialized inner certificate, field 2 the signature over those exact
// bytes. The inner field numbers below follow sealed_sender.proto.
const (
	certFieldPayload   = 1
	certFieldSignature = 2

	serverCertFieldID  = 1
	serverCertFieldKey = 2
)

// ServerCertificate is the middle link of the sealed sender trust chain: a
// key the server signs messages with, itself signed by the trust root.
type ServerCertificate struct {
	keyID       uint32
	key         *PublicKey
	certificate []byte
	signature   []byte
}

// NewServerCertificate should only be used for testing (at least according to
// the Swift bindings).
func NewServerCertificate(keyID uint32, publicKey *PublicKey, trustRoot *PrivateKey) (*ServerCertificate, error) {
	var payload []byte
	payload = protowire.AppendTag(payload, serverCertFieldID, protowire.VarintType)
	payload = protowire.AppendVarint(payload, uint64(keyID))
	payload = protowire.AppendTag(payload, serverCertFieldKey, protowire.BytesType)
	payload = protowire.AppendBytes(payload, publicKey.Serialize())

	signature, err := trustRoot.Sign(payload)
	if err != nil {
		return nil, err
	}
	return &ServerCertificate{
		keyID:       keyID,
		key:         publicKey,
		certificate: payload,
		signature:   signature,
	}, nil
}

func DeserializeServerCertificate(serialized []byte) (*ServerCertificate, error) {
	payload, signature, err := parseSignedCertificate(serialized)
	if err != nil {
		return nil, err
	}
	sc := &ServerCertificate{certificate: payload, signature: signature}
	var haveID bool
	data := payload
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, wireError(n)
		}
		data = data[n:]
		switch {
		case num == serverCertFieldID && typ == protowire.VarintType:
			id, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, wireError(m)
			}
			if id > math.MaxUint32 {
				return nil, fmt.Errorf("%w: key id %d overflows uint32", ErrInvalidCertificate, id)
			}
			sc.keyID = uint32(id)
			haveID = true
			data = data[m:]
		case num == serverCertFieldKey && typ == protowire.BytesType:
			keyData, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, wireError(m)
			}
			key, err := DeserializePublicKey(keyData)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
			}
			sc.key = key
			data = data[m:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, wireError(n)
			}
			data = data[n:]
		}
	}
	if !haveID || sc.key == nil {
		return nil, fmt.Errorf("%w: missing key id or key", ErrInvalidCertificate)
	}
	return sc, nil
}

func (sc *ServerCertificate) Serialize() []byte {
	return appendSignedCertificate(nil, sc.certificate, sc.signature)
}

func (sc *ServerCertificate) GetKeyId() uint32 {
	return sc.keyID
}

func (sc *ServerCertificate) GetKey() *PublicKey {
	return sc.key
}

// GetCertificate returns the signed payload bytes.
func (sc *ServerCertificate) GetCertificate() []byte {
	return bytes.Clone(sc.certificate)
}

func (sc *ServerCertificate) GetSignature() []byte {
	return bytes.Clone(sc.signature)
}

func parseSignedCertificate(serialized []byte) (payload, signature []byte, err error) {
	for len(serialized) > 0 {
		num, typ, n := protowire.ConsumeTag(serialized)
		if n < 0 {
			return nil, nil, wireError(n)
		}
		serialized = serialized[n:]
		if typ == protowire.BytesType && (num == certFieldPayload || num == certFieldSignature) {
			value, m := protowire.ConsumeBytes(serialized)
			if m < 0 {
				return nil, nil, wireError(m)
			}
			if num == certFieldPayload {
				payload = value
			} else {
				signature = value
			}
			serialized = serialized[m:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, serialized)
		if n < 0 {
			return nil, nil, wireError(n)
		}
		serialized = serialized[n:]
	}
	if payload == nil || signature == nil {
		return nil, nil, fmt.Errorf("%w: missing certificate or signature", ErrInvalidCertificate)
	}
	return payload, signature, nil
}

func appendSignedCertificate(out, payload, signature []byte) []byte {
	out = protowire.AppendTag(out, certFieldPayload, protowire.BytesType)
	out = protowire.AppendBytes(out, payload)
	out = protowire.AppendTag(out, certFieldSignature, protowire.BytesType)
	out = protowire.AppendBytes(out, signature)
	return out
}

func wireError(n int) error {
	return fmt.Errorf("%w: %v", ErrInvalidCertificate, protowire.ParseError(n))
}
