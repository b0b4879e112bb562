// Package zkgroup carries the serialized zero-knowledge group parameters the
// service publishes per deployment. The blob is opaque at this layer; it is
// handed as-is to the anonymous credential machinery.
package zkgroup

import (
	"errors"
	"fmt"
)

const ServerPublicParamsLen = 161

type ServerPublicParams [ServerPublicParamsLen]byte

var ErrWrongSizeParams = errors.New("wrong size for serialized server public params")

func DeserializeServerPublicParams(serialized []byte) (ServerPublicParams, error) {
	if len(serialized) != ServerPublicParamsLen {
		return ServerPublicParams{}, fmt.Errorf("%w: %d", ErrWrongSizeParams, len(serialized))
	}
	var params ServerPublicParams
	copy(params[:], serialized)
	return params, nil
}

func (spp *ServerPublicParams) Slice() []byte {
	return spp[:]
}
