// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ayoung19/instant/pkg/debug"
	"github.com/ayoung19/instant/pkg/logger"
	"github.com/ayoung19/instant/pkg/usage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	auditCmd.Flags().Bool("json", false, "Emit the report as JSON")
	auditCmd.Flags().String("debug_addr", "", "Serve metrics/pprof on this address while the audit runs")
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit per-tenant storage usage by listing the bucket",
	Long: `Walks the configured bucket page by page and aggregates object count and
total bytes per app id. The report is computed from the store alone, so it
can be diffed against the metadata catalog to detect drift. Interrupting the
command cancels the walk at the next page boundary.`,
	Run: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) {
	fl := NewFlagLoader(cmd)

	if addr, _ := cmd.Flags().GetString("debug_addr"); addr != "" {
		go func() {
			debug.SetReady()
			if err := http.ListenAndServe(addr, debug.GetMux()); err != nil {
				logger.Error().Err(err).Msg("debug server stopped")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStoreClient(ctx, fl)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create store client")
	}

	report, err := usage.NewAuditor(store).Audit(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Usage audit failed")
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Fatal().Err(err).Msg("Failed to encode report")
		}
		return
	}

	printReport(report)
}

func printReport(report *usage.Report) {
	appIDs := make([]string, 0, len(report.Apps))
	for id := range report.Apps {
		appIDs = append(appIDs, id)
	}
	sort.Strings(appIDs)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "APP ID\tFILES\tBYTES\tSIZE")
	for _, id := range appIDs {
		u := report.Apps[id]
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			id,
			humanize.Comma(u.FileCount),
			u.TotalBytes,
			humanize.IBytes(uint64(u.TotalBytes)),
		)
	}
	w.Flush()

	fmt.Printf("\n%s objects across %d apps in %s\n",
		humanize.Comma(report.ObjectCount), len(report.Apps), report.Duration.Round(time.Millisecond))
	if report.UnparsedKeys > 0 {
		fmt.Printf("WARNING: %d keys did not parse as tenant keys\n", report.UnparsedKeys)
	}
}
