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

package libsignal

import (
	"bytes"
	"crypto/rand"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
	"go.mau.fi/util/exerrors"
	"golang.org/x/crypto/curve25519"
)

// Domain separator for the XEd25519 nonce hash: 0xFE followed by 31 0xFF
// bytes, an encoding no valid point or scalar starts with.
var signaturePrefix = [32]byte{
	0xFE, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}

// PrivateKey is a clamped Curve25519 scalar together with its precomputed
// public key.
type PrivateKey struct {
	key       [PrivateKeyLen]byte
	publicKey PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	var key [PrivateKeyLen]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, err
	}
	return DeserializePrivateKey(key[:])
}

// DeserializePrivateKey clamps the scalar as it loads it, so any 32 byte
// string is a usable key.
func DeserializePrivateKey(keyData []byte) (*PrivateKey, error) {
	if len(keyData) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: %d", ErrBadKeyLength, len(keyData))
	}
	pk := &PrivateKey{}
	copy(pk.key[:], keyData)
	pk.key[0] &= 248
	pk.key[31] &= 127
	pk.key[31] |= 64

	pub, err := curve25519.X25519(pk.key[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("deriving public key: %w", err)
	}
	copy(pk.publicKey.key[:], pub)
	return pk, nil
}

func (pk *PrivateKey) GetPublicKey() *PublicKey {
	return &pk.publicKey
}

func (pk *PrivateKey) Serialize() []byte {
	return bytes.Clone(pk.key[:])
}

// Agree computes the X25519 shared secret between this key and theirs.
func (pk *PrivateKey) Agree(theirKey *PublicKey) ([]byte, error) {
	return curve25519.X25519(pk.key[:], theirKey.key[:])
}

// Sign produces an XEd25519 signature over message. The scalar doubles as an
// Ed25519 signing key; the sign bit of the derived Edwards public key is
// stashed in the high bit of the final signature byte so verifiers can
// reconstruct the exact Edwards point from the Montgomery key.
func (pk *PrivateKey) Sign(message []byte) ([]byte, error) {
	var random [64]byte
	if _, err := rand.Read(random[:]); err != nil {
		return nil, err
	}

	a := exerrors.Must(new(edwards25519.Scalar).SetBytesWithClamping(pk.key[:]))
	edPub := new(edwards25519.Point).ScalarBaseMult(a).Bytes()
	signBit := edPub[31] & 0x80

	nonceHash := sha512.New()
	nonceHash.Write(signaturePrefix[:])
	nonceHash.Write(pk.key[:])
	nonceHash.Write(message)
	nonceHash.Write(random[:])
	r := exerrors.Must(new(edwards25519.Scalar).SetUniformBytes(nonceHash.Sum(nil)))
	capR := new(edwards25519.Point).ScalarBaseMult(r).Bytes()

	challengeHash := sha512.New()
	challengeHash.Write(capR)
	challengeHash.Write(edPub)
	challengeHash.Write(message)
	h := exerrors.Must(new(edwards25519.Scalar).SetUniformBytes(challengeHash.Sum(nil)))

	s := new(edwards25519.Scalar).MultiplyAdd(h, a, r)

	signature := make([]byte, 0, SignatureLen)
	signature = append(signature, capR...)
	signature = append(signature, s.Bytes()...)
	signature[SignatureLen-1] &= 0x7F
	signature[SignatureLen-1] |= signBit
	return signature, nil
}
