package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR encodes params using fxamacker/cbor in RFC 8949 Core Deterministic
// form: sorted map keys, shortest-form integers. Key identity needs
// byte-for-byte stable output, so the non-deterministic encoder modes are
// not offered here. Time values are encoded as RFC3339Nano.
//
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
type CBOR struct {
	enc cbor.EncMode
}

var _ Codec = CBOR{}

func NewCBOR() (CBOR, error) {
	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: em}, nil
}

// MustCBOR is like NewCBOR but panics on error.
// Handy for package-level variables in tests/examples.
func MustCBOR() CBOR {
	c, err := NewCBOR()
	if err != nil {
		panic(err)
	}
	return c
}

func (CBOR) Name() string { return "cbor" }

func (c CBOR) EncodeParams(p any) ([]byte, error) {
	b, err := c.enc.Marshal(p)
	if err != nil {
		return nil, &ParamError{Codec: "cbor", Err: err}
	}
	return b, nil
}
