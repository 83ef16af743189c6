// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package migration

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// UseLocationIDKey is the config key for the externally managed
// "storage migration: use location id" flag.
const UseLocationIDKey = "storage.use_location_id"

// ViperSource reads the migration flag from a hot-reloadable config file.
// The watched file is rewritten by the surrounding deployment tooling; a
// change takes effect on the next operation without a restart.
type ViperSource struct {
	migrating atomic.Bool
}

// NewViperSource loads the flag from the given config file and watches it
// for changes.
func NewViperSource(configFile string) (*ViperSource, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetDefault(UseLocationIDKey, false)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read migration config: %w", err)
	}

	s := &ViperSource{}
	s.migrating.Store(!v.GetBool(UseLocationIDKey))

	v.OnConfigChange(func(e fsnotify.Event) {
		migrating := !v.GetBool(UseLocationIDKey)
		prev := s.migrating.Swap(migrating)
		if prev != migrating {
			log.Info().
				Str("file", e.Name).
				Bool("migrating", migrating).
				Msg("storage migration flag changed")
		}
	})
	v.WatchConfig()

	return s, nil
}

func (s *ViperSource) Migrating(context.Context) bool {
	return s.migrating.Load()
}
