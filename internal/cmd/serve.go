package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xdg/warden/internal/client"
	"github.com/xdg/warden/internal/clog"
	"github.com/xdg/warden/internal/server"
	"github.com/xdg/warden/internal/term"
)

// shutdownGrace is how long in-flight commands get to finish on SIGTERM
// before they are killed.
const shutdownGrace = 5 * time.Second

var serveSocket string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the warden daemon in the foreground",
	Long: `Serve execution requests on a Unix socket until interrupted.

The socket is readable only by the current user and every request must carry
the shared secret recorded in the daemon state file. Use "exec --remote",
"check --remote" and "audit show --remote" to talk to the daemon, and
"warden stop" to shut it down.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the daemon is running",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	serveCmd.Flags().StringVar(&serveSocket, "socket", "", "socket path (default from config)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	statePath := server.StatePath()
	if _, err := server.CleanupStale(statePath); err != nil {
		return err
	}
	if st, err := server.LoadState(statePath); err != nil {
		return err
	} else if st.Running() {
		return fmt.Errorf("daemon already running (pid %d)", st.PID)
	}

	eng, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closeRecorder(eng.Recorder())

	socket := serveSocket
	if socket == "" {
		socket = cfg.Server.Socket
	}
	secret := server.NewSecret()
	srv := server.New(socket, secret, eng)
	if err := srv.Start(); err != nil {
		return err
	}

	st := &server.State{PID: os.Getpid(), Secret: secret, Socket: socket, Started: time.Now()}
	if err := server.SaveState(statePath, st); err != nil {
		_ = srv.Stop(context.Background())
		return err
	}
	term.Printf("warden daemon listening on %s (pid %d)\n", socket, st.PID)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	clog.Info("serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		clog.Error("serve: stop: %v", err)
	}
	if err := server.RemoveState(statePath); err != nil {
		clog.Warn("serve: %v", err)
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	statePath := server.StatePath()
	st, err := server.LoadState(statePath)
	if err != nil {
		return err
	}
	if !st.Running() {
		if _, err := server.CleanupStale(statePath); err != nil {
			return err
		}
		term.Println("warden daemon is not running")
		return nil
	}

	if err := st.Terminate(); err != nil {
		return fmt.Errorf("stop daemon (pid %d): %w", st.PID, err)
	}
	deadline := time.Now().Add(shutdownGrace + 5*time.Second)
	for st.Running() {
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon (pid %d) did not exit", st.PID)
		}
		time.Sleep(100 * time.Millisecond)
	}
	term.Printf("warden daemon stopped (pid %d)\n", st.PID)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := server.LoadState(server.StatePath())
	if err != nil {
		return err
	}
	if !st.Running() {
		term.Println("warden daemon is not running")
		return NewExitCodeError(exitFailed)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
	defer cancel()
	v, err := client.New(st.Socket, st.Secret).Ping(ctx)
	if err != nil {
		return fmt.Errorf("daemon (pid %d) is not answering: %w", st.PID, err)
	}
	term.Table([]string{"PID", "VERSION", "SOCKET", "UPTIME"}, [][]string{{
		fmt.Sprint(st.PID), v, st.Socket, time.Since(st.Started).Round(time.Second).String(),
	}})
	return nil
}
