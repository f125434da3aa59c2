package assets

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

// ReadShaderBinary reads a compiled SPIR-V blob in full. The blob must be
// non-empty and a whole number of 32-bit words.
func ReadShaderBinary(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open shader %s", path)
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read shader %s", path)
	}
	if len(buf) == 0 {
		return nil, errors.Wrap(core.ErrEmptyShader, path)
	}
	if len(buf)%4 != 0 {
		return nil, errors.Errorf("shader %s is %d bytes, not a multiple of 4", path, len(buf))
	}
	return buf, nil
}
