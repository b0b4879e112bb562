// libsignal-service-go - A Go client library for the Signal messaging service.
// Copyright (C) 2024 David Perez
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package libsignal implements the protocol primitives the service layer
// hands out: Curve25519 key pairs with XEd25519 signatures and the sealed
// sender certificate chain.
package libsignal

import (
	"bytes"
	"crypto/ed25519"
	"crypto/subtle"
	"errors"
	"fmt"

	"filippo.io/edwards25519/field"
	"go.mau.fi/util/exerrors"
)

const (
	// KeyTypeDJB tags a Curve25519 key in its serialized form.
	KeyTypeDJB = 0x05

	PublicKeyLen           = 32
	SerializedPublicKeyLen = PublicKeyLen + 1
	PrivateKeyLen          = 32
	SignatureLen           = 64
)

var (
	ErrBadKeyType   = errors.New("bad key type")
	ErrBadKeyLength = errors.New("bad key length")
)

// PublicKey is a Curve25519 public key, stored as the Montgomery
// u-coordinate.
type PublicKey struct {
	key [PublicKeyLen]byte
}

// DeserializePublicKey parses the wire form of a public key: a type byte
// followed by the 32 key bytes.
func DeserializePublicKey(keyData []byte) (*PublicKey, error) {
	if len(keyData) != SerializedPublicKeyLen {
		return nil, fmt.Errorf("%w: %d", ErrBadKeyLength, len(keyData))
	}
	if keyData[0] != KeyTypeDJB {
		return nil, fmt.Errorf("%w: 0x%02x", ErrBadKeyType, keyData[0])
	}
	pk := &PublicKey{}
	copy(pk.key[:], keyData[1:])
	return pk, nil
}

func (pk *PublicKey) Serialize() []byte {
	serialized := make([]byte, 0, SerializedPublicKeyLen)
	serialized = append(serialized, KeyTypeDJB)
	return append(serialized, pk.key[:]...)
}

// Bytes returns the raw key without the type byte.
func (pk *PublicKey) Bytes() []byte {
	return bytes.Clone(pk.key[:])
}

func (pk *PublicKey) Equal(other *PublicKey) bool {
	return subtle.ConstantTimeCompare(pk.key[:], other.key[:]) == 1
}

// Verify checks an XEd25519 signature made by the matching private key. The
// key converts to its Edwards form with the sign bit carried in the high bit
// of the final signature byte, then the signature verifies as plain Ed25519.
func (pk *PublicKey) Verify(message, signature []byte) bool {
	if len(signature) != SignatureLen {
		return false
	}

	u := exerrors.Must(new(field.Element).SetBytes(pk.key[:]))
	one := new(field.Element).One()
	denom := new(field.Element).Add(u, one)
	if denom.Equal(new(field.Element)) == 1 {
		// u = -1 has no Edwards counterpart.
		return false
	}
	y := new(field.Element).Multiply(
		new(field.Element).Subtract(u, one),
		denom.Invert(denom),
	)

	edKey := y.Bytes()
	edKey[31] |= signature[SignatureLen-1] & 0x80

	sig := bytes.Clone(signature)
	sig[SignatureLen-1] &= 0x7F

	return ed25519.Verify(ed25519.PublicKey(edKey), message, sig)
}
