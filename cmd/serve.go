package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/rehearse/internal/server"
	"github.com/audiolibrelab/rehearse/internal/service"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for browser control",
	Long: `Start the Rehearse web server to run the interview from a browser.
The page warns before you close it while a session is recording, and an
interrupt while recording has to be repeated before the server exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		guard := &service.LeaveGuard{}
		svc, err := service.New(cfg, cfgFile, ffmpegLog(), guard.Hook)
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		srv := server.New(svc, cfgFile, port)
		slog.Info("Rehearse web server starting", "port", port, "config", cfgFile)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case sig := <-sigChan:
				if !guard.Interrupt() {
					slog.Warn("Interview is recording, interrupt again to stop and discard it", "signal", sig.String())
					continue
				}
				if guard.Engaged() {
					svc.RequestLeave(true)
					slog.Warn("Discarding the interview in progress")
				}
				slog.Info("Shutting down", "signal", sig.String())
				return nil
			}
		}
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port for the web server")
}
