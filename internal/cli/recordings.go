package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List recordings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := deps.Client.Recordings(cmd.Context())
			if err != nil {
				return err
			}
			NewFormatter(deps.Out).Recordings(recs)
			return nil
		},
	}
}

func NewProcessCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "process <channel> <file>",
		Short: "Remux a raw recording into the processed directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Client.Process(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			NewFormatter(deps.Out).Success(fmt.Sprintf("Processed video: %s/%s", args[0], args[1]))
			return nil
		},
	}
}

func NewRemoveCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <channel> <file>",
		Aliases: []string{"delete"},
		Short:   "Delete a recording and its processed copy",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Client.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			NewFormatter(deps.Out).Success(fmt.Sprintf("Deleted video: %s/%s", args[0], args[1]))
			return nil
		},
	}
}

func NewAutoProcessCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:       "auto-process on|off",
		Short:     "Turn automatic processing of finished recordings on or off",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on := args[0] == "on"
			if err := deps.Client.SetAutoProcess(cmd.Context(), on); err != nil {
				return err
			}
			NewFormatter(deps.Out).Success("Auto-process " + args[0])
			return nil
		},
	}
}
