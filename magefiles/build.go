//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderSources = []string{
	"shaders/primary.rgen",
	"shaders/primary.rmiss",
	"shaders/primary.rchit",
	"shaders/diffuse.rmiss",
	"shaders/diffuse.rchit",
	"shaders/shadow.rmiss",
	"shaders/atrous.comp",
	"shaders/compose.comp",
}

// Compiles every shader to SPIR-V next to its source.
func (Build) Shaders() error {
	for _, src := range shaderSources {
		if _, err := executeCmd("glslc",
			withArgs("--target-env=vulkan1.2", src, "-o", src+".spv"),
			withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Runs the full test suite.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
