package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Proto encodes proto.Message params with deterministic marshaling. Note
// that protobuf's deterministic output is stable within one library
// version, not guaranteed across versions; prefer CBOR when keys must
// survive rolling upgrades byte-identically.
type Proto struct{}

var _ Codec = Proto{}

func (Proto) Name() string { return "proto" }

func (Proto) EncodeParams(p any) ([]byte, error) {
	m, ok := p.(proto.Message)
	if !ok {
		return nil, &ParamError{Codec: "proto", Err: fmt.Errorf("params %T is not a proto.Message", p)}
	}
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
	if err != nil {
		return nil, &ParamError{Codec: "proto", Err: err}
	}
	return b, nil
}
