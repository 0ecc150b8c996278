// -- cmd/serve.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/agentseek/internal/observability"
	"github.com/xkilldash9x/agentseek/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the AgentSeek API server",
	Long: `Starts the HTTP API: the agent planning loop, browser automation,
code execution, file operations, GitHub proxy, chat sessions and the
polled execution/progress registries. Blocks until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		srv, err := server.NewServer(appConfig, logger)
		if err != nil {
			return fmt.Errorf("initializing server: %w", err)
		}
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Int("port", 7777, "port for the API server to listen on")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}
