// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

// Package env reports which environment the process runs in. The value is
// read from configuration (ENV) on first access, after configuration has
// been loaded, and defaults to local.
package env

import (
	"sync"

	"github.com/spf13/viper"
)

const (
	Local      = "local"
	Production = "production"
	Testing    = "testing"
)

var (
	Env string

	once sync.Once
)

func IsLocal() bool {
	load()
	return Env == Local
}

func IsProduction() bool {
	load()
	return Env == Production
}

func IsTesting() bool {
	load()
	return Env == Testing
}

// load resolves ENV lazily rather than in an init so that callers observe
// the value after viper has been wired, not the package default.
func load() {
	once.Do(func() {
		Env = viper.GetString("ENV")
		if Env == "" {
			Env = Local
		}
	})
}
