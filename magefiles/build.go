//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

type Build mg.Namespace

var shaderStages = []string{"vert", "frag"}

// Compiles shaders/shader.{vert,frag} to SPIR-V with glslc.
func (Build) Shaders() error {
	if err := requireTool("glslc", "install the Vulkan SDK or shaderc"); err != nil {
		return err
	}
	for _, stage := range shaderStages {
		src := filepath.Join("shaders", "shader."+stage)
		dst := filepath.Join("shaders", stage+".spv")
		stale, err := target.Path(dst, src)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		if err := compileShader(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// Runs the package tests.
func (Build) Test() error {
	return goCmd("test", "./...")
}
