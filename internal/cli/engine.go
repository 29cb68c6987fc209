package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/parser"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/runtime"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/scan"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/sync"
)

// engineRunOptions holds the flags for "pandauractl engine run", the one
// command that actually drives a scan.Engine: everything else in this
// package talks to Postgres, this one compiles a logic file and ticks it.
type engineRunOptions struct {
	projectID    string
	logicFileID  string
	callerKey    string
	ticks        int
	scanTime     time.Duration
	watchdog     time.Duration
	rateLimit    int
	rateWindow   time.Duration
	redisAddr    string
	redisPass    string
	redisDB      int
	metricsAddr  string
}

func newEngineCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "compile and drive a project's scan-cycle engine",
	}

	ro := &engineRunOptions{}
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "load a project's logic file, compile it, and run the scan-cycle engine",
		Long: `run compiles a logic file into a runtime program and drives it at
the configured scan period, exactly as a PLC runtime would. With --ticks it
steps a fixed number of cycles and exits; without it, it runs in the
foreground, reading setVariable/fault/push/status commands from stdin until
EOF or Ctrl-C, the same command surface sync.Service exposes to any other
caller.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, ro)
		},
	}
	runCmd.Flags().StringVar(&ro.projectID, "project", "", "project id the engine runs under")
	runCmd.Flags().StringVar(&ro.logicFileID, "logic", "", "logic file id to compile and load")
	runCmd.Flags().StringVar(&ro.callerKey, "caller", "cli", "rate-limit key attributed to commands issued from stdin")
	runCmd.Flags().IntVar(&ro.ticks, "ticks", 0, "run exactly N ticks and exit instead of reading stdin")
	runCmd.Flags().DurationVar(&ro.scanTime, "scan-time", scan.DefaultConfig().ScanTime, "scan-cycle period")
	runCmd.Flags().DurationVar(&ro.watchdog, "watchdog", scan.DefaultConfig().WatchdogLimit, "per-tick watchdog limit")
	runCmd.Flags().IntVar(&ro.rateLimit, "rate-limit", 0, "max command weight per caller per window (0 disables)")
	runCmd.Flags().DurationVar(&ro.rateWindow, "rate-window", time.Minute, "rate-limit window")
	runCmd.Flags().StringVar(&ro.redisAddr, "redis-addr", "", "redis address for the command rate limiter (falls back to in-memory if empty)")
	runCmd.Flags().StringVar(&ro.redisPass, "redis-password", "", "redis password")
	runCmd.Flags().IntVar(&ro.redisDB, "redis-db", 0, "redis database index")
	runCmd.Flags().StringVar(&ro.metricsAddr, "metrics-addr", "", "if set, serve /metrics on this address while the engine runs")
	_ = runCmd.MarkFlagRequired("project")
	_ = runCmd.MarkFlagRequired("logic")

	cmd.AddCommand(runCmd)
	return cmd
}

func runEngine(opts *RootOptions, ro *engineRunOptions) error {
	ctx := context.Background()
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	file, err := a.logicFiles.GetLogicFile(ctx, ro.logicFileID)
	if err != nil {
		return WrapServiceError("load logic file", err)
	}
	prog, err := parser.Parse(file.Content)
	if err != nil {
		return WrapExitError(ExitCommandError, "compile logic file", err)
	}

	logger := slog.Default()

	limiter, err := newCommandRateLimiter(ro, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "construct rate limiter", err)
	}
	defer limiter.Close()

	if ro.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: ro.metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server exited", "error", err)
			}
		}()
		defer server.Close()
	}

	hub := sync.NewHub()
	metrics := scan.NewMetrics()
	syncSvc := sync.New(hub, limiter, a.logicFiles, logger, ro.rateLimit, ro.rateWindow)

	cfg := scan.DefaultConfig()
	cfg.ScanTime = ro.scanTime
	cfg.WatchdogLimit = ro.watchdog

	var eng *scan.Engine
	rt := runtime.New(func() float64 { return eng.Clock() })
	if err := rt.Load(prog); err != nil {
		return WrapExitError(ExitCommandError, "load compiled program", err)
	}
	eng = scan.New(rt, cfg, syncSvc.SinkFor(ro.projectID), metrics)
	syncSvc.RegisterEngine(ro.projectID, eng)
	defer syncSvc.UnregisterEngine(ro.projectID)

	out := formatter(opts)

	if ro.ticks > 0 {
		for i := 0; i < ro.ticks; i++ {
			eng.StepOnce()
		}
		status, err := syncSvc.GetStatus(ro.projectID)
		if err != nil {
			return WrapServiceError("get status", err)
		}
		return out.Success(status)
	}

	stop := make(chan struct{})
	go eng.Run(stop)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatchStdinCommands(ctx, &syncSvc, ro, out, os.Stdin)
	}()

	select {
	case <-sigCh:
		logger.Info("engine run received interrupt, stopping")
	case <-done:
	}
	close(stop)
	return nil
}

func newCommandRateLimiter(ro *engineRunOptions, logger *slog.Logger) (sync.RateLimiter, error) {
	if ro.redisAddr == "" {
		return sync.NewMemoryRateLimiter(), nil
	}
	return sync.NewRedisRateLimiter(ro.redisAddr, ro.redisPass, ro.redisDB, logger)
}

// dispatchStdinCommands reads one command per line from r and applies it
// against svc until EOF: setVariable, injectFault, removeFault, pushLogic,
// and status. It is the only transport this repo gives that command
// surface: no HTTP, no websocket, just the operator's terminal.
func dispatchStdinCommands(ctx context.Context, svc *sync.Service, ro *engineRunOptions, out *OutputFormatter, r *os.File) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])
		if cmd == "quit" || cmd == "exit" {
			return
		}
		if err := runCommandLine(ctx, svc, ro, out, cmd, fields[1:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func runCommandLine(ctx context.Context, svc *sync.Service, ro *engineRunOptions, out *OutputFormatter, cmd string, args []string) error {
	switch cmd {
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: set <tag> <value>")
		}
		return svc.SetVariable(ctx, ro.callerKey, ro.projectID, args[0], parseCommandValue(args[1]))
	case "fault":
		return runFaultCommand(ctx, svc, ro, args)
	case "push":
		if len(args) < 2 {
			return fmt.Errorf("usage: push <logic-file-id> <shadow|live>")
		}
		result, err := svc.PushLogic(ctx, ro.projectID, args[0], args[1])
		if err != nil {
			return err
		}
		return out.Success(result)
	case "status":
		status, err := svc.GetStatus(ro.projectID)
		if err != nil {
			return err
		}
		return out.Success(status)
	case "help":
		fmt.Fprintln(os.Stdout, "commands: set <tag> <value> | fault inject <target> <type> [param] [durationMs] [delayMs] | fault remove <target> | push <logic-file-id> <shadow|live> | status | quit")
		return nil
	default:
		return fmt.Errorf("unknown command %q (try: help)", cmd)
	}
}

func runFaultCommand(ctx context.Context, svc *sync.Service, ro *engineRunOptions, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: fault inject|remove ...")
	}
	switch strings.ToLower(args[0]) {
	case "inject":
		if len(args) < 3 {
			return fmt.Errorf("usage: fault inject <target> <type> [param] [durationMs] [delayMs]")
		}
		req := scan.InjectFaultRequest{Target: args[1], Type: strings.ToUpper(args[2])}
		if len(args) > 3 {
			req.Parameter, _ = strconv.ParseFloat(args[3], 64)
		}
		if len(args) > 4 {
			req.DurationMS, _ = strconv.ParseFloat(args[4], 64)
		}
		if len(args) > 5 {
			req.DelayMS, _ = strconv.ParseFloat(args[5], 64)
		}
		return svc.InjectFault(ctx, ro.callerKey, ro.projectID, req)
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: fault remove <target>")
		}
		return svc.RemoveFault(ctx, ro.callerKey, ro.projectID, args[1])
	default:
		return fmt.Errorf("unknown fault subcommand %q", args[0])
	}
}

func parseCommandValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
