package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"winewarden/internal/daemon"
	"winewarden/internal/types"
	"winewarden/internal/wwpaths"
	"winewarden/logging"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start, stop, or query the winewarden daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

var daemonPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the daemon is reachable",
	Args:  cobra.NoArgs,
	RunE:  runDaemonPing,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the daemon's active session count",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

var daemonSocketPathCmd = &cobra.Command{
	Use:   "socket-path",
	Short: "Print the daemon's socket path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(wwpaths.SocketPath())
		return nil
	},
}

var daemonPIDPathCmd = &cobra.Command{
	Use:   "pid-path",
	Short: "Print the daemon's pid file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(wwpaths.PIDPath())
		return nil
	},
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonPingCmd, daemonStatusCmd, daemonSocketPathCmd, daemonPIDPathCmd)
	rootCmd.AddCommand(daemonCmd)
}

// runDaemonStart runs the daemon in the foreground: multiplex `run`
// requests arriving over the Unix-socket IPC onto the same executeRun
// session lifecycle the local `run` command uses, serialized by
// daemon.Server's mutex.
func runDaemonStart(cmd *cobra.Command, args []string) error {
	if err := wwpaths.EnsureRuntimeDir(); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}

	pidPath := wwpaths.PIDPath()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write pid file %s: %w", pidPath, err)
	}
	defer os.Remove(pidPath)

	logger := logging.Default()
	srv := &daemon.Server{
		SocketPath: wwpaths.SocketPath(),
		Logger:     logger,
		Run:        daemonRunFunc,
	}

	logger.Info("daemon starting", "socket", srv.SocketPath, "pid", os.Getpid())
	ctx := GetContext()
	err := srv.ListenAndServe(ctx)
	logger.Info("daemon stopped")
	return err
}

// daemonRunFunc adapts executeRun to daemon.RunFunc, turning a
// daemon.RunRequestPayload into the same runParams the local `run`
// command builds from CLI flags.
func daemonRunFunc(ctx context.Context, payload daemon.RunRequestPayload) (types.SessionReport, error) {
	return executeRun(ctx, runParams{
		Executable: payload.Executable,
		Args:       payload.Args,
		Prefix:     payload.Prefix,
		EventLog:   payload.EventLog,
		Trust:      payload.Trust,
		NoRun:      payload.NoRun,
		PirateSafe: payload.PirateSafe,
		Live:       payload.Live,
		LiveFS:     payload.LiveFS,
		LiveProc:   payload.LiveProc,
		LiveNet:    payload.LiveNet,
		PollMS:     payload.PollMS,
	})
}

func runDaemonPing(cmd *cobra.Command, args []string) error {
	c, err := daemon.Dial(wwpaths.SocketPath())
	if err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}
	defer c.Close()

	if err := c.Ping(); err != nil {
		return err
	}
	fmt.Println("pong")
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	return statusFromDaemon()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(wwpaths.PIDPath())
	if err != nil {
		return fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("parse pid file: %w", err)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon pid %d: %w", pid, err)
	}
	fmt.Printf("sent SIGTERM to daemon pid %d\n", pid)
	return nil
}
