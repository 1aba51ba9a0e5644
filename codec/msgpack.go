package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack encodes params with vmihailenco/msgpack/v5, forcing sorted map
// keys for stable output. Compact for struct-heavy params; be mindful of
// `msgpack` struct tag differences vs JSON.
type Msgpack struct{}

var _ Codec = Msgpack{}

func (Msgpack) Name() string { return "msgpack" }

func (Msgpack) EncodeParams(p any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(p); err != nil {
		return nil, &ParamError{Codec: "msgpack", Err: err}
	}
	return buf.Bytes(), nil
}
