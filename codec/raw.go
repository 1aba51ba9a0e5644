package codec

import "fmt"

// String is the identity codec for string params. By convention this
// assumes the caller already produces stable strings (ids, slugs).
type String struct{}

var _ Codec = String{}

func (String) Name() string { return "string" }

func (String) EncodeParams(p any) ([]byte, error) {
	s, ok := p.(string)
	if !ok {
		return nil, &ParamError{Codec: "string", Err: fmt.Errorf("params %T is not a string", p)}
	}
	return []byte(s), nil
}

// Bytes is the identity codec for []byte params. The caller owns
// determinism of the bytes.
type Bytes struct{}

var _ Codec = Bytes{}

func (Bytes) Name() string { return "bytes" }

func (Bytes) EncodeParams(p any) ([]byte, error) {
	b, ok := p.([]byte)
	if !ok {
		return nil, &ParamError{Codec: "bytes", Err: fmt.Errorf("params %T is not a []byte", p)}
	}
	return b, nil
}
