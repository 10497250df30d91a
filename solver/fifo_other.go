//go:build !unix

package solver

import "errors"

// Named pipes exist on Windows but need a different client model; the
// regular-file fallback keeps the solver working there.
func newNamedPipe() (inputChannel, error) {
	return nil, errors.New("named pipes are not supported on this platform")
}
