//go:build mage

// Package main contains Mage build targets for vimwiki2neorg developer tooling.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "vimwiki2neorg"
	cmdPkg  = "./cmd/app"

	exampleConfig = "config/config.example.yaml"
	localConfig   = "config/config.yaml"
)

// Init copies the example config to config/config.yaml unless one exists.
func Init() error {
	if _, err := os.Stat(localConfig); err == nil {
		fmt.Printf("%s already exists\n", localConfig)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	src, err := os.Open(exampleConfig)
	if err != nil {
		return fmt.Errorf("opening %s: %w", exampleConfig, err)
	}
	defer src.Close()
	dst, err := os.Create(localConfig)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localConfig, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	fmt.Printf("Wrote %s\n", localConfig)
	return dst.Close()
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Vet runs go vet over the module.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the unit tests with the race detector.
func Test() error {
	mg.Deps(Vet)
	return sh.RunV("go", "test", "-race", "./...")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
