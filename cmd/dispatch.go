package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/anhkiet307/swapstation/app"
	"github.com/anhkiet307/swapstation/config"
	"github.com/anhkiet307/swapstation/core/dispatch"
	"github.com/anhkiet307/swapstation/infra/logger"
)

var (
	sourceID int64
	targetID int64
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Swap the batteries of two slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			res, err := svc.Manager.Dispatch(ctx, dispatch.Request{SourceID: sourceID, TargetID: targetID})
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.State == dispatch.StateRejected {
				return errors.New(res.Outcome.Rejection.Message())
			}
			return nil
		})
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Check whether two slots may be swapped without changing them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			out, err := svc.Manager.Evaluate(ctx, sourceID, targetID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{dispatchCmd, evaluateCmd} {
		c.Flags().Int64Var(&sourceID, "source", 0, "source slot id")
		c.Flags().Int64Var(&targetID, "target", 0, "target slot id")
		_ = c.MarkFlagRequired("source")
		_ = c.MarkFlagRequired("target")
		rootCmd.AddCommand(c)
	}
}

func withService(cmd *cobra.Command, fn func(context.Context, *app.Service) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("cli").Errorf("service close: %v", err)
		}
	}()
	return fn(ctx, svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
