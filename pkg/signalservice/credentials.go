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

package signalservice

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"go.mau.fi/util/random"
)

// DefaultDeviceID marks the account's primary device. Only linked devices
// carry a device suffix in their login identifier.
const DefaultDeviceID uint32 = 1

// SignalingKey concatenates the envelope cipher and MAC keys.
type SignalingKey [CipherKeySize + MACKeySize]byte

func GenerateSignalingKey() *SignalingKey {
	key := &SignalingKey{}
	copy(key[:], random.Bytes(len(key)))
	return key
}

func (sk *SignalingKey) CipherKey() []byte {
	return sk[:CipherKeySize]
}

func (sk *SignalingKey) MACKey() []byte {
	return sk[CipherKeySize:]
}

// ServiceCredentials identifies one account and device against the service.
// The phone number is always known; everything else is filled in as
// registration progresses.
type ServiceCredentials struct {
	// ACI is the stable account identifier, uuid.Nil until the service has
	// issued one.
	ACI          uuid.UUID
	PhoneNumber  *phonenumbers.PhoneNumber
	Password     *string
	SignalingKey *SignalingKey
	// DeviceID is nil for accounts registered before multi-device support.
	DeviceID *uint32
}

// HTTPAuth is the basic-auth pair the push service authenticates with.
type HTTPAuth struct {
	Username string
	Password string
}

func (sc *ServiceCredentials) E164() string {
	return phonenumbers.Format(sc.PhoneNumber, phonenumbers.E164)
}

// Login derives the identifier requests authenticate as: the ACI when known,
// the E.164 number before that, with ".deviceID" appended for linked
// devices. Downstream authentication depends on this exact shape.
func (sc *ServiceCredentials) Login() string {
	identifier := sc.ACI.String()
	if sc.ACI == uuid.Nil {
		identifier = sc.E164()
	}
	if sc.DeviceID == nil || *sc.DeviceID == DefaultDeviceID {
		return identifier
	}
	return fmt.Sprintf("%s.%d", identifier, *sc.DeviceID)
}

// Authorization returns the account's basic-auth pair, or nil before
// registration has issued a password.
func (sc *ServiceCredentials) Authorization() *HTTPAuth {
	if sc.Password == nil {
		return nil
	}
	return &HTTPAuth{
		Username: sc.Login(),
		Password: *sc.Password,
	}
}
