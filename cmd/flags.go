// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/ayoung19/instant/pkg/logger"
	"github.com/ayoung19/instant/pkg/migration"
	"github.com/ayoung19/instant/pkg/s3client"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagLoader provides methods for loading configuration values with CLI flag
// precedence. When a CLI flag is explicitly set, it takes precedence over
// config file and env vars. Otherwise, viper's standard priority applies:
// env > config file > default.
type FlagLoader struct {
	cmd *cobra.Command
}

// NewFlagLoader creates a FlagLoader for the given cobra command.
func NewFlagLoader(cmd *cobra.Command) *FlagLoader {
	return &FlagLoader{cmd: cmd}
}

// String returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) String(flagName string) string {
	if f.cmd.Flags().Changed(flagName) {
		val, _ := f.cmd.Flags().GetString(flagName)
		return val
	}
	if v := viper.GetString(flagName); v != "" {
		return v
	}
	val, _ := f.cmd.Flags().GetString(flagName)
	return val
}

// Bool returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) Bool(flagName string) bool {
	if f.cmd.Flags().Changed(flagName) {
		val, _ := f.cmd.Flags().GetBool(flagName)
		return val
	}
	if viper.IsSet(flagName) {
		return viper.GetBool(flagName)
	}
	val, _ := f.cmd.Flags().GetBool(flagName)
	return val
}

// newStoreClient builds the bucket-scoped S3 client from resolved config.
func newStoreClient(ctx context.Context, fl *FlagLoader) (*s3client.Client, error) {
	return s3client.New(ctx, s3client.Config{
		Endpoint:        fl.String("s3.endpoint"),
		Region:          fl.String("s3.region"),
		Bucket:          fl.String("s3.bucket"),
		AccessKeyID:     fl.String("s3.access_key_id"),
		SecretAccessKey: fl.String("s3.secret_access_key"),
		PathStyle:       fl.Bool("s3.path_style"),
	})
}

// newMigrationSource picks the migration flag source: Redis when an address
// is configured, a watched config file when given, otherwise the static
// --migration.migrating value.
func newMigrationSource(fl *FlagLoader) migration.Source {
	if addr := fl.String("migration.redis_addr"); addr != "" {
		cfg := migration.DefaultRedisConfig()
		cfg.Addr = addr
		cfg.Key = fl.String("migration.redis_key")
		src, err := migration.NewRedisSource(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect migration flag source")
		}
		return src
	}

	if file := fl.String("migration.config"); file != "" {
		src, err := migration.NewViperSource(file)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load migration flag config")
		}
		return src
	}

	return migration.Static(fl.Bool("migration.migrating"))
}
