//go:build mage

package main

import (
	"fmt"
	"os/exec"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// glfw and the Vulkan loader are reached through cgo.
var cgoEnv = map[string]string{"CGO_ENABLED": "1"}

// requireTool fails early with an install hint when name is not on PATH.
func requireTool(name, hint string) error {
	if _, err := exec.LookPath(name); err != nil {
		return mg.Fatalf(1, "%s not found on PATH: %s", name, hint)
	}
	return nil
}

// compileShader turns one GLSL stage into SPIR-V for Vulkan 1.0.
func compileShader(src, dst string) error {
	fmt.Printf("Compiling %s -> %s\n", src, dst)
	return sh.RunV("glslc", "--target-env=vulkan1.0", src, "-o", dst)
}

// goCmd runs the go tool with cgo enabled, streaming its output.
func goCmd(args ...string) error {
	return sh.RunWithV(cgoEnv, mg.GoCmd(), args...)
}
