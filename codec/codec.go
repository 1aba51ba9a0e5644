// Package codec encodes provider parameters into the deterministic bytes
// used for cache-key identity. Logically equal parameters MUST encode to
// equal bytes: the cache compares keys byte-for-byte and never decodes them.
package codec

import "fmt"

// Codec renders provider parameters for key derivation.
type Codec interface {
	// EncodeParams renders p. Output must be stable across runs and
	// processes for logically equal p.
	EncodeParams(p any) ([]byte, error)
	// Name tags the codec in errors and diagnostics.
	Name() string
}

// ParamError reports parameters that could not be encoded. Key derivation
// surfaces it synchronously, before the cache is touched.
type ParamError struct {
	Codec string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("codec %s: encode params: %v", e.Codec, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }
