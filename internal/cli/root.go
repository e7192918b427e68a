// Package cli implements streamrecctl, a command-line client for the
// streamrec server.
package cli

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/edirooss/streamrec/internal/config"
	"github.com/edirooss/streamrec/pkg/fmtt"
	"github.com/spf13/cobra"
)

// Dependencies are shared by every command. Client is built once the
// persistent flags are parsed.
type Dependencies struct {
	Out        io.Writer
	Err        io.Writer
	HTTPClient *http.Client
	Now        func() time.Time

	// Set from the persistent flags before any command runs.
	Client *Client
	Debug  bool
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Err == nil {
		deps.Err = os.Stderr
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	var server string
	var debug bool

	rootCmd := &cobra.Command{
		Use:           "streamrecctl",
		Short:         "Control a streamrec server",
		Long:          "Start and stop live stream captures, and process or delete recordings, on a running streamrec server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			deps.Debug = debug
			var dbg io.Writer
			if debug {
				dbg = deps.Err
			}
			c, err := NewClient(server, deps.HTTPClient, dbg)
			if err != nil {
				return err
			}
			deps.Client = c
			return nil
		},
	}

	rootCmd.Version = config.Version
	rootCmd.SetVersionTemplate("streamrecctl " + config.Version + " (commit " + config.GitCommit + ", built " + config.BuildDate + ")\n")
	rootCmd.SetOut(deps.Out)
	rootCmd.SetErr(deps.Err)

	defaultServer := os.Getenv("STREAMREC_SERVER")
	if defaultServer == "" {
		defaultServer = "http://127.0.0.1:5001"
	}
	rootCmd.PersistentFlags().StringVar(&server, "server", defaultServer, "server base URL (env STREAMREC_SERVER)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "dump raw and decoded responses to stderr")

	rootCmd.AddCommand(NewStartCmd(deps))
	rootCmd.AddCommand(NewStopCmd(deps))
	rootCmd.AddCommand(NewStatusCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewProcessCmd(deps))
	rootCmd.AddCommand(NewRemoveCmd(deps))
	rootCmd.AddCommand(NewAutoProcessCmd(deps))
	rootCmd.AddCommand(NewLogsCmd(deps))

	return rootCmd
}

// ReportError prints err for the user. With --debug the error chain follows,
// one line per wrapped layer.
func ReportError(deps *Dependencies, err error) {
	NewFormatter(deps.Err).Error(err.Error())
	if deps.Debug {
		fmtt.PrintErrChain(deps.Err, err)
	}
}
