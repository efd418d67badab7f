// Package errs declares the error kinds used across the code-stream engine,
// per spec.md §7 "Error handling design". Each kind is a sentinel error;
// callers branch on kind with errors.Is, and wrap it with fmt.Errorf("...:
// %w", ...) for context, matching the pattern in
// cocosip-go-dicom-codec/codec/errors.go.
package errs

import "errors"

var (
	// ErrCorruptCodeStream: marker length, ordering, or field violates
	// ISO/IEC 15444-1 or this implementation's documented sub-setting.
	ErrCorruptCodeStream = errors.New("corrupt code-stream")

	// ErrCorruptBox: JP2 box is malformed (length < header, length >
	// available, length == 0 before JP2C).
	ErrCorruptBox = errors.New("corrupt box")

	// ErrInvalidParameters: caller-supplied compression parameters are
	// self-inconsistent.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrUnsupportedFeature: a syntactically valid construct this codec
	// does not implement.
	ErrUnsupportedFeature = errors.New("unsupported feature")

	// ErrIoFailure: the Stream returned short or failed.
	ErrIoFailure = errors.New("i/o failure")

	// ErrTruncatedTile: tile-part data length exceeds stream remainder.
	ErrTruncatedTile = errors.New("truncated tile")

	// ErrOutOfMemory: allocation failed; always fatal for the current
	// operation.
	ErrOutOfMemory = errors.New("out of memory")
)

// Kind returns which of the above sentinels err wraps, or nil if none.
func Kind(err error) error {
	for _, k := range []error{
		ErrCorruptCodeStream, ErrCorruptBox, ErrInvalidParameters,
		ErrUnsupportedFeature, ErrIoFailure, ErrTruncatedTile, ErrOutOfMemory,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
