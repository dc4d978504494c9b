package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/steveyegge/ghtrack/internal/config"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API and live update websocket",
	Long: `Starts an HTTP server exposing the project state to a web UI. Every change
to the state is pushed to clients connected to /ws.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = config.GetString("serve.addr")
		}
		a := mustApp(false)
		srv := server.New(a, debug.Logger())

		go func() {
			if err := a.Refresh(rootCtx, false); err != nil {
				debug.Logger().Warn("initial refresh failed", "error", err)
			}
		}()

		debug.PrintNormal("Listening on http://%s\n", addr)
		if err := srv.ListenAndServe(rootCtx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(err)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Address to listen on (default: serve.addr config, 127.0.0.1:7878)")
	rootCmd.AddCommand(serveCmd)
}
