package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the streamsync client.
// It registers the streams and health command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "streamsync",
		Short: "streamsync client commands",
	}
	root.AddCommand(NewStreamsCommand(baseURL))
	root.AddCommand(NewHealthCommand())
	return root
}
