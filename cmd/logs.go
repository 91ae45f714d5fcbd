package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anhkiet307/swapstation/app"
	"github.com/anhkiet307/swapstation/core/dispatch/logging"
	"github.com/anhkiet307/swapstation/pkg/export"
)

var (
	logsFormat string
	logsSlot   int64
	logsState  string
	logsSince  time.Duration
	logsLimit  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Export dispatch audit records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if logsFormat != "json" && logsFormat != "csv" {
			return fmt.Errorf("unknown format %q", logsFormat)
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			if svc.Logs == nil {
				return errors.New("audit log is disabled")
			}
			q := logging.LogQuery{SlotID: logsSlot, State: logsState, Limit: logsLimit}
			if logsSince > 0 {
				q.Start = time.Now().Add(-logsSince)
			}
			recs, err := svc.Logs.Query(ctx, q)
			if err != nil {
				return err
			}
			if logsFormat == "csv" {
				return export.WriteCSV(cmd.OutOrStdout(), recs)
			}
			return export.WriteJSON(cmd.OutOrStdout(), recs)
		})
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "output format (json or csv)")
	logsCmd.Flags().Int64Var(&logsSlot, "slot", 0, "only records involving this slot id")
	logsCmd.Flags().StringVar(&logsState, "state", "", "only records in this final state")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "only records newer than this duration")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 0, "maximum number of records")
	rootCmd.AddCommand(logsCmd)
}
