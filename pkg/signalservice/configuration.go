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

// Package signalservice resolves the network and trust configuration for a
// Signal client and derives the account identity strings used to
// authenticate against the service.
package signalservice

import (
	"encoding/base64"
	"fmt"

	"go.mau.fi/util/exerrors"

	"github.com/david-perez/libsignal-service-go/pkg/libsignal"
	"github.com/david-perez/libsignal-service-go/pkg/zkgroup"
)

// SignalServers selects one of the server deployments a client can target.
type SignalServers string

const (
	SignalServersStaging    SignalServers = "staging"
	SignalServersProduction SignalServers = "production"
)

// ParseSignalServers matches the exact lowercase deployment names; there is
// no normalization.
func ParseSignalServers(text string) (SignalServers, error) {
	switch servers := SignalServers(text); servers {
	case SignalServersStaging, SignalServersProduction:
		return servers, nil
	default:
		return "", ErrInvalidSignalServers
	}
}

func (ss SignalServers) String() string {
	return string(ss)
}

func (ss SignalServers) MarshalText() ([]byte, error) {
	return []byte(ss), nil
}

func (ss *SignalServers) UnmarshalText(text []byte) error {
	parsed, err := ParseSignalServers(string(text))
	if err != nil {
		return err
	}
	*ss = parsed
	return nil
}

func (ss *SignalServers) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var text string
	if err := unmarshal(&text); err != nil {
		return err
	}
	return ss.UnmarshalText([]byte(text))
}

// ServiceConfiguration is an immutable snapshot of every endpoint and trust
// anchor for one deployment. Snapshots are plain values; share or copy them
// freely.
type ServiceConfiguration struct {
	ServiceURL          string
	StorageURL          string
	CDNURLs             map[uint32]string
	ContactDiscoveryURL string

	// CertificateAuthority is the PEM root certificate the service's TLS
	// endpoints chain to, shared by both deployments.
	CertificateAuthority string
	// UnidentifiedSenderTrustRoot is the base64 public key that signs sealed
	// sender server certificates, distinct per deployment.
	UnidentifiedSenderTrustRoot string
	ZKGroupServerPublicParams   zkgroup.ServerPublicParams
}

// Configuration returns the deployment's full configuration snapshot. It is
// pure and total for the two defined deployments; a hand-forged value is a
// programmer error and panics. Endpoint values mirror
// Signal-Desktop/config/{default,production}.json.
func (ss SignalServers) Configuration() ServiceConfiguration {
	switch ss {
	case SignalServersStaging:
		return ServiceConfiguration{
			ServiceURL: "https://chat.staging.signal.org",
			StorageURL: "https://storage-staging.signal.org",
			CDNURLs: map[uint32]string{
				0: "https://cdn-staging.signal.org",
				2: "https://cdn2-staging.signal.org",
			},
			ContactDiscoveryURL:         "https://api-staging.directory.signal.org",
			CertificateAuthority:        signalRootCA,
			UnidentifiedSenderTrustRoot: "BbqY1DzohE4NUZoVF+L18oUPrK3kILllLEJh2UnPSsEx",
			ZKGroupServerPublicParams:   stagingServerPublicParams,
		}
	case SignalServersProduction:
		return ServiceConfiguration{
			ServiceURL: "https://chat.signal.org",
			StorageURL: "https://storage.signal.org",
			CDNURLs: map[uint32]string{
				0: "https://cdn.signal.org",
				2: "https://cdn2.signal.org",
			},
			ContactDiscoveryURL:         "https://api.directory.signal.org",
			CertificateAuthority:        signalRootCA,
			UnidentifiedSenderTrustRoot: "BXu6QIKVz5MA8gstzfOgRQGqyLqOwNKHL6INkv3IHWMF",
			ZKGroupServerPublicParams:   prodServerPublicParams,
		}
	default:
		panic(fmt.Sprintf("unknown signal servers %q", string(ss)))
	}
}

// Endpoint selects one of the per-deployment base URLs. The zero value is
// the chat service endpoint.
type Endpoint struct {
	kind endpointKind
	cdn  uint32
}

type endpointKind int

const (
	endpointService endpointKind = iota
	endpointStorage
	endpointCDN
	endpointContactDiscovery
)

func ServiceEndpoint() Endpoint {
	return Endpoint{kind: endpointService}
}

func StorageEndpoint() Endpoint {
	return Endpoint{kind: endpointStorage}
}

func CDNEndpoint(n uint32) Endpoint {
	return Endpoint{kind: endpointCDN, cdn: n}
}

func ContactDiscoveryEndpoint() Endpoint {
	return Endpoint{kind: endpointContactDiscovery}
}

func (e Endpoint) String() string {
	switch e.kind {
	case endpointStorage:
		return "storage"
	case endpointCDN:
		return fmt.Sprintf("cdn%d", e.cdn)
	case endpointContactDiscovery:
		return "contact-discovery"
	default:
		return "service"
	}
}

// BaseURL resolves an endpoint selector against this deployment. CDN numbers
// are a fixed per-deployment set, so an unknown one returns
// ErrUnknownEndpoint rather than a URL.
func (sc ServiceConfiguration) BaseURL(endpoint Endpoint) (string, error) {
	switch endpoint.kind {
	case endpointService:
		return sc.ServiceURL, nil
	case endpointStorage:
		return sc.StorageURL, nil
	case endpointCDN:
		url, ok := sc.CDNURLs[endpoint.cdn]
		if !ok {
			return "", fmt.Errorf("%w: cdn %d", ErrUnknownEndpoint, endpoint.cdn)
		}
		return url, nil
	case endpointContactDiscovery:
		return sc.ContactDiscoveryURL, nil
	default:
		panic(fmt.Sprintf("unknown endpoint kind %d", endpoint.kind))
	}
}

// CredentialsValidator decodes the deployment's unidentified sender trust
// root and wraps it in a certificate validator. Certificate verification
// itself lives in the libsignal package.
func (sc ServiceConfiguration) CredentialsValidator() (*libsignal.CertificateValidator, error) {
	trustRootBytes, err := base64.StdEncoding.DecodeString(sc.UnidentifiedSenderTrustRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	trustRoot, err := libsignal.DeserializePublicKey(trustRootBytes)
	if err != nil {
		return nil, err
	}
	return libsignal.NewCertificateValidator(trustRoot), nil
}

func mustServerPublicParams(encoded string) zkgroup.ServerPublicParams {
	decoded := exerrors.Must(base64.StdEncoding.DecodeString(encoded))
	return exerrors.Must(zkgroup.DeserializeServerPublicParams(decoded))
}

var (
	stagingServerPublicParams = mustServerPublicParams("ABSY21VckQcbSXVNCGRYJcfWHiAMZmpTtTELcDmxgdFbtp/bWsSxZdMKzfCp8rvIs8ocCU3B37fT3r4Mi5qAemeGeR2X+/YmOGR5ofui7tD5mDQfstAI9i+4WpMtIe8KC3wU5w3Inq3uNWVmoGtpKndsNfwJrCg0Hd9zmObhypUnSkfYn2ooMOOnBpfdanRtrvetZUayDMSC5iSRcXKpdls=")
	prodServerPublicParams    = mustServerPublicParams("AMhf5ywVwITZMsff/eCyudZx9JDmkkkbV6PInzG4p8x3VqVJSFiMvnvlEKWuRob/1eaIetR31IYeAbm0NdOuHH8Qi+Rexi1wLlpzIo1gstHWBfZzy1+qHRV5A4TqPp15YzBPm0WSggW6PbSn+F4lf57VCnHF7p8SvzAA2ZZJPYJURt8X7bbg+H3i+PEjH9DXItNEqs2sNcug37xZQDLm7X0=")
)

const signalRootCA = `-----BEGIN CERTIFICATE-----
MIIF2zCCA8OgAwIBAgIUAMHz4g60cIDBpPr1gyZ/JDaaPpcwDQYJKoZIhvcNAQEL
BQAwdTELMAkGA1UEBhMCVVMxEzARBgNVBAgTCkNhbGlmb3JuaWExFjAUBgNVBAcT
DU1vdW50YWluIFZpZXcxHjAcBgNVBAoTFVNpZ25hbCBNZXNzZW5nZXIsIExMQzEZ
MBcGA1UEAxMQU2lnbmFsIE1lc3NlbmdlcjAeFw0yMjAxMjYwMDQ1NTFaFw0zMjAx
MjQwMDQ1NTBaMHUxCzAJBgNVBAYTAlVTMRMwEQYDVQQIEwpDYWxpZm9ybmlhMRYw
FAYDVQQHEw1Nb3VudGFpbiBWaWV3MR4wHAYDVQQKExVTaWduYWwgTWVzc2VuZ2Vy
LCBMTEMxGTAXBgNVBAMTEFNpZ25hbCBNZXNzZW5nZXIwggIiMA0GCSqGSIb3DQEB
AQUAA4ICDwAwggIKAoICAQDEecifxMHHlDhxbERVdErOhGsLO08PUdNkATjZ1kT5
1uPf5JPiRbus9F4J/GgBQ4ANSAjIDZuFY0WOvG/i0qvxthpW70ocp8IjkiWTNiA8
1zQNQdCiWbGDU4B1sLi2o4JgJMweSkQFiyDynqWgHpw+KmvytCzRWnvrrptIfE4G
PxNOsAtXFbVH++8JO42IaKRVlbfpe/lUHbjiYmIpQroZPGPY4Oql8KM3o39ObPnT
o1WoM4moyOOZpU3lV1awftvWBx1sbTBL02sQWfHRxgNVF+Pj0fdDMMFdFJobArrL
VfK2Ua+dYN4pV5XIxzVarSRW73CXqQ+2qloPW/ynpa3gRtYeGWV4jl7eD0PmeHpK
OY78idP4H1jfAv0TAVeKpuB5ZFZ2szcySxrQa8d7FIf0kNJe9gIRjbQ+XrvnN+ZZ
vj6d+8uBJq8LfQaFhlVfI0/aIdggScapR7w8oLpvdflUWqcTLeXVNLVrg15cEDwd
lV8PVscT/KT0bfNzKI80qBq8LyRmauAqP0CDjayYGb2UAabnhefgmRY6aBE5mXxd
byAEzzCS3vDxjeTD8v8nbDq+SD6lJi0i7jgwEfNDhe9XK50baK15Udc8Cr/ZlhGM
jNmWqBd0jIpaZm1rzWA0k4VwXtDwpBXSz8oBFshiXs3FD6jHY2IhOR3ppbyd4qRU
pwIDAQABo2MwYTAOBgNVHQ8BAf8EBAMCAQYwDwYDVR0TAQH/BAUwAwEB/zAdBgNV
HQ4EFgQUtfNLxuXWS9DlgGuMUMNnW7yx83EwHwYDVR0jBBgwFoAUtfNLxuXWS9Dl
gGuMUMNnW7yx83EwDQYJKoZIhvcNAQELBQADggIBABUeiryS0qjykBN75aoHO9bV
PrrX+DSJIB9V2YzkFVyh/io65QJMG8naWVGOSpVRwUwhZVKh3JVp/miPgzTGAo7z
hrDIoXc+ih7orAMb19qol/2Ha8OZLa75LojJNRbZoCR5C+gM8C+spMLjFf9k3JVx
dajhtRUcR0zYhwsBS7qZ5Me0d6gRXD0ZiSbadMMxSw6KfKk3ePmPb9gX+MRTS63c
8mLzVYB/3fe/bkpq4RUwzUHvoZf+SUD7NzSQRQQMfvAHlxk11TVNxScYPtxXDyiy
3Cssl9gWrrWqQ/omuHipoH62J7h8KAYbr6oEIq+Czuenc3eCIBGBBfvCpuFOgckA
XXE4MlBasEU0MO66GrTCgMt9bAmSw3TrRP12+ZUFxYNtqWluRU8JWQ4FCCPcz9pg
MRBOgn4lTxDZG+I47OKNuSRjFEP94cdgxd3H/5BK7WHUz1tAGQ4BgepSXgmjzifF
T5FVTDTl3ZnWUVBXiHYtbOBgLiSIkbqGMCLtrBtFIeQ7RRTb3L+IE9R0UB0cJB3A
Xbf1lVkOcmrdu2h8A32aCwtr5S1fBF1unlG7imPmqJfpOMWa8yIF/KWVm29JAPq8
Lrsybb0z5gg8w7ZblEuB9zOW9M3l60DXuJO6l7g+deV6P96rv2unHS8UlvWiVWDy
9qfgAJizyy3kqM4lOwBH
-----END CERTIFICATE-----`
