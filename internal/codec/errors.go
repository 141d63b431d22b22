package codec

import (
	"fmt"

	"github.com/kasei-go/diomede/internal/xerrors"
)

func errShortBuffer(what string, want, got int) error {
	return xerrors.NewCodecError(fmt.Sprintf("%s requires %d bytes, got %d", what, want, got))
}
