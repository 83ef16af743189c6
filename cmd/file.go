// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ayoung19/instant/pkg/filestore"
	"github.com/ayoung19/instant/pkg/logger"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	fileCmd.PersistentFlags().String("app_id", "", "Tenant app id (required)")
	fileCmd.PersistentFlags().String("path", "", "Tenant-relative file path")
	fileCmd.PersistentFlags().String("location_id", "", "Location id of the file")
	fileCmd.MarkPersistentFlagRequired("app_id")

	fileCmd.AddCommand(filePutCmd)
	fileCmd.AddCommand(fileDeleteCmd)
	fileCmd.AddCommand(fileURLCmd)
	fileCmd.AddCommand(fileStatCmd)
	rootCmd.AddCommand(fileCmd)
}

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Operate on individual tenant files",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var filePutCmd = &cobra.Command{
	Use:   "put <local-file>",
	Short: "Upload a local file under the active key scheme(s)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fl := NewFlagLoader(cmd)
		ctx := cmd.Context()

		store, err := newStoreClient(ctx, fl)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create store client")
		}

		f, err := os.Open(args[0])
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open input file")
		}
		defer f.Close()

		locationID, _ := cmd.Flags().GetString("location_id")
		if locationID == "" {
			locationID = filestore.NewLocationID()
		}
		appID, _ := cmd.Flags().GetString("app_id")
		path, _ := cmd.Flags().GetString("path")

		migrating := newMigrationSource(fl).Migrating(ctx)

		err = filestore.NewService(store).Upload(ctx, filestore.UploadRequest{
			AppID:      appID,
			Path:       path,
			LocationID: locationID,
			Migrating:  migrating,
			Body:       f,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Upload failed")
		}

		fmt.Printf("uploaded %s (location id %s, migrating=%v)\n", args[0], locationID, migrating)
	},
}

var fileDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a file under the active key scheme(s)",
	Long: `Deletes one file, or many when --location_id and --path carry
comma-separated lists (bulk deletes go through the store's batched delete).`,
	Run: func(cmd *cobra.Command, args []string) {
		fl := NewFlagLoader(cmd)
		ctx := cmd.Context()

		store, err := newStoreClient(ctx, fl)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create store client")
		}

		appID, _ := cmd.Flags().GetString("app_id")
		path, _ := cmd.Flags().GetString("path")
		locationID, _ := cmd.Flags().GetString("location_id")

		migrating := newMigrationSource(fl).Migrating(ctx)
		svc := filestore.NewService(store)

		paths := splitList(path)
		locationIDs := splitList(locationID)

		if len(paths) > 1 || len(locationIDs) > 1 {
			err = svc.DeleteAll(ctx, filestore.BulkDeleteRequest{
				AppID:       appID,
				Paths:       paths,
				LocationIDs: locationIDs,
				Migrating:   migrating,
			})
		} else {
			err = svc.Delete(ctx, filestore.DeleteRequest{
				AppID:      appID,
				Path:       path,
				LocationID: locationID,
				Migrating:  migrating,
			})
		}
		if err != nil {
			logger.Fatal().Err(err).Msg("Delete failed")
		}
	},
}

var fileURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Issue a 7-day read URL for a file",
	Run: func(cmd *cobra.Command, args []string) {
		fl := NewFlagLoader(cmd)
		ctx := cmd.Context()

		store, err := newStoreClient(ctx, fl)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create store client")
		}

		appID, _ := cmd.Flags().GetString("app_id")
		path, _ := cmd.Flags().GetString("path")
		locationID, _ := cmd.Flags().GetString("location_id")

		url, err := filestore.NewService(store).SignedURL(ctx, filestore.URLRequest{
			AppID:      appID,
			Path:       path,
			LocationID: locationID,
			Migrating:  newMigrationSource(fl).Migrating(ctx),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Presign failed")
		}
		if url == "" {
			logger.Fatal().Msg("No readable object for this file")
		}
		fmt.Println(url)
	},
}

var fileStatCmd = &cobra.Command{
	Use:   "stat",
	Short: "Show stored object metadata for a file",
	Run: func(cmd *cobra.Command, args []string) {
		fl := NewFlagLoader(cmd)
		ctx := cmd.Context()

		store, err := newStoreClient(ctx, fl)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create store client")
		}

		appID, _ := cmd.Flags().GetString("app_id")
		path, _ := cmd.Flags().GetString("path")
		locationID, _ := cmd.Flags().GetString("location_id")

		key, ok := filestore.ReadKey(appID, path, locationID, newMigrationSource(fl).Migrating(ctx))
		if !ok {
			logger.Fatal().Msg("No readable object for this file")
		}

		info, err := store.Head(ctx, key)
		if err != nil {
			logger.Fatal().Err(err).Str("key", key).Msg("Head failed")
		}

		fmt.Printf("key:           %s\n", info.Key)
		fmt.Printf("size:          %d (%s)\n", info.Size, humanize.IBytes(uint64(info.Size)))
		fmt.Printf("content type:  %s\n", info.ContentType)
		fmt.Printf("etag:          %s\n", info.ETag)
		fmt.Printf("last modified: %s\n", info.LastModified.Format(time.RFC3339))
	},
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
