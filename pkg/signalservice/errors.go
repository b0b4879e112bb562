package signalservice

import "errors"

var (
	// ErrInvalidSignalServers is returned when parsing a deployment name
	// that is neither of the two known environments.
	ErrInvalidSignalServers = errors.New("invalid signal servers, can be either: staging or production")
	// ErrUnknownEndpoint is returned when resolving a CDN number the
	// deployment does not define.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrInvalidCertificate is returned when a trust root fails to decode.
	ErrInvalidCertificate = errors.New("invalid certificate")
)
