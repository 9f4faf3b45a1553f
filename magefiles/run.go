//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Run builds the CLI and performs one pass over the reading list.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "run")
}

// Schedule builds the CLI and starts the scheduler in the foreground.
func Schedule() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "schedule")
}

// History prints the latest run from the local ledger.
func History() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "history", "--last")
}
