package client

import (
	"encoding/json"
	"fmt"
	"strings"

	transports "github.com/rzbill/streamsync/internal/cmd/client/transports"
	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

var newStreamsTransport = func(baseURL BaseURLFunc) transports.StreamsTransport {
	return transports.NewHTTPTransport(baseURL)
}

// NewStreamsCommand constructs the `streams` command group and subcommands.
func NewStreamsCommand(baseURL BaseURLFunc) *cobra.Command {
	if baseURL == nil {
		baseURL = APIURLFromEnv
	}
	streamsCmd := &cobra.Command{Use: "streams", Short: "Recorded notification streams"}
	streamsCmd.AddCommand(
		newStreamsListCommand(baseURL),
		newStreamsGetCommand(baseURL),
		newStreamsRegisterCommand(baseURL),
		newStreamsUnregisterCommand(baseURL),
	)
	return streamsCmd
}

// newStreamsListCommand constructs the `streams list` subcommand.
func newStreamsListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded streams",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			streams, err := newStreamsTransport(baseURL).List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, s := range streams {
				if err := enc.Encode(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
	listCmd.Flags().String("filter", "", `CEL filter, e.g. 'replay_support && attributes["owner"] == "secops"'`)
	return listCmd
}

// newStreamsGetCommand constructs the `streams get` subcommand.
func newStreamsGetCommand(baseURL BaseURLFunc) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show one recorded stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			s, err := newStreamsTransport(baseURL).Get(cmd.Context(), name)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
	getCmd.Flags().String("name", "", "Stream name")
	return getCmd
}

// newStreamsRegisterCommand constructs the `streams register` subcommand.
func newStreamsRegisterCommand(baseURL BaseURLFunc) *cobra.Command {
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Announce a stream to the server's collector",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			desc, _ := cmd.Flags().GetString("description")
			replay, _ := cmd.Flags().GetBool("replay")
			attrs, _ := cmd.Flags().GetStringArray("attr")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			s := transports.Stream{Name: name, Description: desc, ReplaySupport: replay}
			for _, kv := range attrs {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid --attr %q; expected key=value", kv)
				}
				if s.Attributes == nil {
					s.Attributes = map[string]string{}
				}
				s.Attributes[k] = v
			}
			if err := newStreamsTransport(baseURL).Register(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "status: accepted")
			return nil
		},
	}
	registerCmd.Flags().String("name", "", "Stream name")
	registerCmd.Flags().String("description", "", "Stream description")
	registerCmd.Flags().Bool("replay", false, "Stream supports replay")
	registerCmd.Flags().StringArray("attr", nil, "Extra attribute key=value (repeatable)")
	return registerCmd
}

// newStreamsUnregisterCommand constructs the `streams unregister` subcommand.
func newStreamsUnregisterCommand(baseURL BaseURLFunc) *cobra.Command {
	unregisterCmd := &cobra.Command{
		Use:   "unregister",
		Short: "Withdraw a stream from the server's collector",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if err := newStreamsTransport(baseURL).Unregister(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "status: accepted")
			return nil
		},
	}
	unregisterCmd.Flags().String("name", "", "Stream name")
	return unregisterCmd
}

// NewHealthCommand constructs the `health` command, which queries the gRPC
// health service.
func NewHealthCommand() *cobra.Command {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Query server health over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, _ := cmd.Flags().GetString("service")
			status, err := transports.NewGrpcTransport(dialGRPCContext).Check(cmd.Context(), service)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "status:", status)
			return nil
		},
	}
	healthCmd.Flags().String("service", "streamsync.Synchronizer", "Health service name (empty for the whole server)")
	return healthCmd
}
