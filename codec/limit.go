package codec

import "fmt"

// Limit wraps another codec to cap the encoded params size. Oversized params
// usually indicate a value smuggled into a key; rejecting them early keeps
// the key space bounded. If Max <= 0, limiting is disabled.
type Limit struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner Codec
	// Max is the maximum permitted length (in bytes) of the encoded params.
	Max int
}

func (c Limit) Name() string { return c.Inner.Name() }

func (c Limit) EncodeParams(p any) ([]byte, error) {
	b, err := c.Inner.EncodeParams(p)
	if err != nil {
		return nil, err
	}
	if c.Max > 0 && len(b) > c.Max {
		return nil, &ParamError{
			Codec: c.Inner.Name(),
			Err:   fmt.Errorf("encoded params too large: %d > %d", len(b), c.Max),
		}
	}
	return b, nil
}
