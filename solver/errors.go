package solver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported marks program constructs a backend cannot evaluate.
var ErrUnsupported = errors.New("unsupported program construct")

// SubprocessError reports an external solver process that exited with an
// error. Stderr carries the process's complete error output.
type SubprocessError struct {
	Code   int
	Stderr string
}

func (e *SubprocessError) Error() string {
	msg := fmt.Sprintf("solver subprocess exited with code %d", e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}
