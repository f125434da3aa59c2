package assets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadShaderBinary(t *testing.T) {
	blob := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
	got, err := ReadShaderBinary(writeFile(t, "vert.spv", blob))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("ReadShaderBinary() = %x, want %x", got, blob)
	}
}

func TestReadShaderBinaryErrors(t *testing.T) {
	_, err := ReadShaderBinary(writeFile(t, "empty.spv", nil))
	if !errors.Is(err, core.ErrEmptyShader) {
		t.Errorf("empty file: err = %v, want ErrEmptyShader", err)
	}

	if _, err := ReadShaderBinary(writeFile(t, "odd.spv", []byte{1, 2, 3, 4, 5})); err == nil {
		t.Error("5-byte file: expected an error")
	}

	if _, err := ReadShaderBinary(filepath.Join(t.TempDir(), "missing.spv")); !os.IsNotExist(errors.Cause(err)) {
		t.Errorf("missing file: err = %v", err)
	}
}
