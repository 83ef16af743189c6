// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/ayoung19/instant/pkg/env"
	"github.com/ayoung19/instant/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "instant",
	Short: "Instant storage tooling",
	Long: `Operational tooling for the Instant file storage layer.
It uploads, deletes, and signs tenant files against the object store, and
audits per-tenant usage by enumerating the bucket directly.`,
	PersistentPreRun: loadConfig,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (flags and env override it)")

	rootCmd.PersistentFlags().String("s3.endpoint", "", "Object store endpoint (empty for AWS)")
	rootCmd.PersistentFlags().String("s3.region", "us-east-1", "Object store region")
	rootCmd.PersistentFlags().String("s3.bucket", "", "Object store bucket")
	rootCmd.PersistentFlags().String("s3.access_key_id", "", "Object store access key id")
	rootCmd.PersistentFlags().String("s3.secret_access_key", "", "Object store secret access key")
	rootCmd.PersistentFlags().Bool("s3.path_style", false, "Use path-style addressing (MinIO and friends)")

	rootCmd.PersistentFlags().String("migration.config", "", "Hot-reloadable config file holding the storage migration flag")
	rootCmd.PersistentFlags().String("migration.redis_addr", "", "Redis address holding the storage migration flag")
	rootCmd.PersistentFlags().String("migration.redis_key", "instant:storage:use_location_id", "Redis key of the use-location-id flag")
	rootCmd.PersistentFlags().Bool("migration.migrating", false, "Static migration mode when no flag source is configured")
}

// loadConfig wires viper: env vars always apply, a config file applies when
// given, and explicitly set CLI flags win over both (see FlagLoader).
func loadConfig(cmd *cobra.Command, args []string) {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("INSTANT")

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			logger.Fatal().Err(err).Str("file", cfgFile).Msg("Failed to read config file")
		}
	}

	applyEnvDefaults()
}

// applyEnvDefaults adjusts runtime behavior to the resolved environment.
// Local runs default to debug logging; LOG_LEVEL still wins when set.
func applyEnvDefaults() {
	if env.IsLocal() && os.Getenv("LOG_LEVEL") == "" {
		logger.SetLevel(zerolog.DebugLevel)
	}
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
