package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewStartCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "start <channel>...",
		Short: "Start recording one or more channels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := deps.Client.Start(cmd.Context(), args)
			if err != nil {
				return err
			}
			NewFormatter(deps.Out).Success(msg)
			return nil
		},
	}
}

func NewStopCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <channel>",
		Short: "Stop recording a channel",
		Long:  "Stop recording a channel. With auto-processing on, the server processes the recording before answering.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Client.Stop(cmd.Context(), args[0]); err != nil {
				return err
			}
			NewFormatter(deps.Out).Success(fmt.Sprintf("Stopped recording %s", args[0]))
			return nil
		},
	}
}

func NewStatusCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show running captures and the auto-process state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			active, err := deps.Client.Active(ctx)
			if err != nil {
				return err
			}
			settings, err := deps.Client.Settings(ctx)
			if err != nil {
				return err
			}
			stats, err := deps.Client.Reconcile(ctx)
			if err != nil {
				return err
			}

			f := NewFormatter(deps.Out)
			f.Active(active, deps.Now())
			on, _ := settings["auto_process_recordings"].(bool)
			f.Loop(on, stats)
			return nil
		},
	}
}

func NewLogsCmd(deps *Dependencies) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs <channel>",
		Short: "Show recent capture output of a channel, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := deps.Client.Logs(cmd.Context(), args[0], lines)
			if err != nil {
				return err
			}
			for _, l := range out {
				fmt.Fprintln(deps.Out, l)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "number of lines")
	return cmd
}
