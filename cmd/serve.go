package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/issuedesk/issuedesk/internal/api"
	"github.com/issuedesk/issuedesk/internal/auth"
	"github.com/issuedesk/issuedesk/internal/daemon"
	"github.com/issuedesk/issuedesk/internal/llm"
)

var serveForeground bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API server",
	Long: `Run the issuedesk REST API server.

By default it listens on :8080 (listen_addr). Requests are authenticated
by the X-User-Email header, which is expected to be set by a trusted
reverse proxy in front of the server.

'serve' runs in the foreground. Use 'serve start' to run it in the
background with a PID file, and 'serve stop' / 'serve status' to manage it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun()
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the API server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background API server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Listen address (overrides listen_addr)")
	_ = viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen"))
	serveCmd.Flags().BoolVar(&serveForeground, "foreground", false, "")
	_ = serveCmd.Flags().MarkHidden("foreground")

	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

// pidFile returns the PID file manager for the background server.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "issuedesk-serve.pid"))
}

// serveLogPath returns the log file path for the background server.
func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "issuedesk-serve.log")
}

// serveRun runs the HTTP server in the foreground until interrupted.
func serveRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}

	var llmClient *llm.Client
	if apiKey := viper.GetString("anthropic.api_key"); apiKey != "" {
		llmClient = llm.NewClient(apiKey, viper.GetString("anthropic.model"))
	}

	resolver := auth.NewHeaderResolver(dataStore)
	server := api.NewServer(svc, dataStore, resolver, llmClient)

	addr := viper.GetString("listen_addr")
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Track the process when launched via `serve start`.
	if serveForeground {
		pf := pidFile()
		if err := pf.Write(); err != nil {
			return fmt.Errorf("write PID file: %w", err)
		}
		defer func() { _ = pf.Remove() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	slog.Info("API server listening", "addr", addr)
	if !serveForeground {
		ui.Info("Serving API at http://localhost%s", addr)
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// serveStartRun launches the server as a detached background process.
func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("server already running (pid %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	logPath := serveLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, "serve", "--foreground")
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	// The child writes its own PID file once it is up; record ours
	// immediately so a quick `serve status` doesn't race.
	if err := pf.WritePID(child.Process.Pid); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}

	ui.Success("Server started (pid %d), listening on %s", child.Process.Pid, viper.GetString("listen_addr"))
	ui.Info("Logs: %s", logPath)
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		return fmt.Errorf("server not running")
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}

	_ = pf.Remove()
	ui.Success("Server stopped (pid %d)", pid)
	return nil
}

func serveStatusRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		ui.Success("Server running (pid %d) on %s", pid, viper.GetString("listen_addr"))
		return nil
	}
	ui.Info("Server not running.")
	return nil
}
