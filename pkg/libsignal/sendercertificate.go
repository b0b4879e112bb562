package libsignal

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	senderCertFieldE164        = 1
	senderCertFieldDevice      = 2
	senderCertFieldExpires     = 3
	senderCertFieldIdentityKey = 4
	senderCertFieldSigner      = 5
	senderCertFieldUUID        = 6
)

type SealedSenderAddress struct {
	E164     string
	UUID     uuid.UUID
	DeviceID uint32
}

// SenderCertificate attests that a sender identity key belongs to the named
// account and device until the expiration time, signed by a server
// certificate.
type SenderCertificate struct {
	senderE164   string
	senderUUID   uuid.UUID
	senderDevice uint32
	expiration   uint64
	key          *PublicKey
	signer       *ServerCertificate
	certificate  []byte
	signature    []byte
}

// NewSenderCertificate should only be used for testing (at least according to
// the Swift bindings).
func NewSenderCertificate(sender *SealedSenderAddress, publicKey *PublicKey, expiration time.Time, signerCertificate *ServerCertificate, signerKey *PrivateKey) (*SenderCertificate, error) {
	var payload []byte
	if sender.E164 != "" {
		payload = protowire.AppendTag(payload, senderCertFieldE164, protowire.BytesType)
		payload = protowire.AppendString(payload, sender.E164)
	}
	payload = protowire.AppendTag(payload, senderCertFieldDevice, protowire.VarintType)
	payload = protowire.AppendVarint(payload, uint64(sender.DeviceID))
	payload = protowire.AppendTag(payload, senderCertFieldExpires, protowire.Fixed64Type)
	payload = protowire.AppendFixed64(payload, uint64(expiration.UnixMilli()))
	payload = protowire.AppendTag(payload, senderCertFieldIdentityKey, protowire.BytesType)
	payload = protowire.AppendBytes(payload, publicKey.Serialize())
	payload = protowire.AppendTag(payload, senderCertFieldSigner, protowire.BytesType)
	payload = protowire.AppendBytes(payload, signerCertificate.Serialize())
	payload = protowire.AppendTag(payload, senderCertFieldUUID, protowire.BytesType)
	payload = protowire.AppendString(payload, sender.UUID.String())

	signature, err := signerKey.Sign(payload)
	if err != nil {
		return nil, err
	}
	return &SenderCertificate{
		senderE164:   sender.E164,
		senderUUID:   sender.UUID,
		senderDevice: sender.DeviceID,
		expiration:   uint64(expiration.UnixMilli()),
		key:          publicKey,
		signer:       signerCertificate,
		certificate:  payload,
		signature:    signature,
	}, nil
}

func DeserializeSenderCertificate(serialized []byte) (*SenderCertificate, error) {
	payload, signature, err := parseSignedCertificate(serialized)
	if err != nil {
		return nil, err
	}
	sc := &SenderCertificate{certificate: payload, signature: signature}
	var haveDevice, haveExpires, haveUUID bool
	data := payload
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, wireError(n)
		}
		data = data[n:]
		switch {
		case num == senderCertFieldE164 && typ == protowire.BytesType:
			e164, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, wireError(m)
			}
			sc.senderE164 = e164
			data = data[m:]
		case num == senderCertFieldDevice && typ == protowire.VarintType:
			device, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, wireError(m)
			}
			if device > math.MaxUint32 {
				return nil, fmt.Errorf("%w: device id %d overflows uint32", ErrInvalidCertificate, device)
			}
			sc.senderDevice = uint32(device)
			haveDevice = true
			data = data[m:]
		case num == senderCertFieldExpires && typ == protowire.Fixed64Type:
			expires, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return nil, wireError(m)
			}
			sc.expiration = expires
			haveExpires = true
			data = data[m:]
		case num == senderCertFieldIdentityKey && typ == protowire.BytesType:
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
		case num == senderCertFieldSigner && typ == protowire.BytesType:
			signerData, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, wireError(m)
			}
			signer, err := DeserializeServerCertificate(signerData)
			if err != nil {
				return nil, err
			}
			sc.signer = signer
			data = data[m:]
		case num == senderCertFieldUUID && typ == protowire.BytesType:
			rawUUID, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, wireError(m)
			}
			senderUUID, err := uuid.Parse(rawUUID)
			if err != nil {
				return nil, fmt.Errorf("%w: sender uuid: %v", ErrInvalidCertificate, err)
			}
			sc.senderUUID = senderUUID
			haveUUID = true
			data = data[m:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, wireError(n)
			}
			data = data[n:]
		}
	}
	if !haveDevice || !haveExpires || !haveUUID || sc.key == nil || sc.signer == nil {
		return nil, fmt.Errorf("%w: missing required sender certificate field", ErrInvalidCertificate)
	}
	return sc, nil
}

func (sc *SenderCertificate) Serialize() []byte {
	return appendSignedCertificate(nil, sc.certificate, sc.signature)
}

func (sc *SenderCertificate) GetSenderUUID() uuid.UUID {
	return sc.senderUUID
}

// GetSenderE164 returns the sender's phone number, or "" when the
// certificate does not carry one.
func (sc *SenderCertificate) GetSenderE164() string {
	return sc.senderE164
}

func (sc *SenderCertificate) GetDeviceID() uint32 {
	return sc.senderDevice
}

func (sc *SenderCertificate) GetExpiration() time.Time {
	return time.UnixMilli(int64(sc.expiration))
}

func (sc *SenderCertificate) GetKey() *PublicKey {
	return sc.key
}

func (sc *SenderCertificate) GetServerCertificate() *ServerCertificate {
	return sc.signer
}

// GetCertificate returns the signed payload bytes.
func (sc *SenderCertificate) GetCertificate() []byte {
	return bytes.Clone(sc.certificate)
}

func (sc *SenderCertificate) GetSignature() []byte {
	return bytes.Clone(sc.signature)
}
