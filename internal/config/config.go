// Package config captures details about the build-tree environment.
// Grounded on distri's internal/env, which resolves $DISTRIROOT; this
// resolves $COURSEBUILD_ROOT the same way (spec.md §8).
package config

import "os"

// BuildRoot is the root of the build/ tree described in spec.md §6
// (build/tatoeba, build/languages, build/links, build/courses, ...).
var BuildRoot = findBuildRoot()

func findBuildRoot() string {
	if env := os.Getenv("COURSEBUILD_ROOT"); env != "" {
		return env
	}
	return "build" // default: ./build relative to cwd
}
