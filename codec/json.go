package codec

import "encoding/json"

// JSON encodes params with encoding/json. Deterministic for JSON-encodable
// params: encoding/json sorts map keys and struct fields keep declaration
// order. The default when callers do not pick a codec.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) EncodeParams(p any) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, &ParamError{Codec: "json", Err: err}
	}
	return b, nil
}
