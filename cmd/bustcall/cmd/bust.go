package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/psantana5/bustcall/internal/cache"
	"github.com/psantana5/bustcall/internal/config"
	"github.com/psantana5/bustcall/internal/escalation"
	"github.com/psantana5/bustcall/internal/probe"
	"github.com/psantana5/bustcall/internal/report"
	"github.com/psantana5/bustcall/internal/restart"
	"github.com/psantana5/bustcall/internal/severity"
	"github.com/psantana5/bustcall/pkg/logging"
	"github.com/psantana5/bustcall/pkg/retry"
	"github.com/psantana5/bustcall/pkg/shutdown"
	"github.com/psantana5/bustcall/pkg/tracing"
)

// checkPackageArg runs before configuration is read, so a bad invocation is
// reported as such even when the config is broken.
func (a *app) checkPackageArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.stdout, "Usage: bustcall <package_name>")
		return &InvocationError{ExitCode: escalation.ExitInvalidInput}
	}
	if _, err := cache.ParsePackageID(args[0]); err != nil {
		fmt.Fprintf(a.stdout, "Invalid package name: %v\n", err)
		return &InvocationError{ExitCode: escalation.ExitInvalidInput}
	}
	return nil
}

func (a *app) runBust(cmd *cobra.Command, args []string) error {
	pkg, err := cache.ParsePackageID(args[0])
	if err != nil {
		return &InvocationError{ExitCode: escalation.ExitInvalidInput, Err: err}
	}

	simulated := cmd.Flags().Changed("simulate-score")
	if simulated && (a.simulateScore < 0 || a.simulateScore > int(severity.MaxScore)) {
		fmt.Fprintf(a.stdout, "Invalid score %d: must be between 0 and %d\n", a.simulateScore, severity.MaxScore)
		return &InvocationError{ExitCode: escalation.ExitInvalidInput}
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	logger, err := a.newLogger(cfg)
	if err != nil {
		return &InvocationError{ExitCode: escalation.ExitPipelineFailure, Err: err}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = tracing.ContextFromEnv(ctx)

	tp, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "bustcall",
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Close()
		return &InvocationError{ExitCode: escalation.ExitPipelineFailure, Err: err}
	}

	prb, err := newProbe(cfg, simulated, a.simulateScore)
	if err != nil {
		logger.Close()
		return &InvocationError{ExitCode: escalation.ExitPipelineFailure, Err: err}
	}

	inv, conn := newInvalidator(cfg)
	th, _ := cfg.Thresholds.Severity()
	metrics := report.NewMetrics()
	var result *report.Result

	// Runs on return and, on the restart path, before the process exits.
	sd := shutdown.New(5*time.Second, logger)
	sd.Register("logger", shutdown.CloseResource(logger, "logger"))
	if conn != nil {
		sd.Register("redis", shutdown.CloseResource(conn, "redis client"))
	}
	sd.Register("tracer", tp.Shutdown)
	sd.Register("outputs", func(context.Context) error {
		a.writeOutputs(cfg, metrics, result, logger)
		return nil
	})
	defer sd.Shutdown()

	ctrl, err := escalation.New(escalation.Config{
		Probe:       prb,
		Thresholds:  th,
		Invalidator: inv,
		Restart: &restart.ProcessSignal{
			Logger: logger,
			Code:   escalation.ExitRestart,
			Exit: func(code int) {
				sd.Shutdown()
				a.exit(code)
			},
			Detect: restart.DetectSupervisor,
		},
		Logger:   logger,
		Metrics:  metrics,
		Tracer:   tp.Tracer(),
		DryRun:   cfg.DryRun,
		OnResult: func(r *report.Result) { result = r },
	})
	if err != nil {
		return &InvocationError{ExitCode: escalation.ExitPipelineFailure, Err: err}
	}

	out := ctrl.Handle(ctx, pkg)
	if out.ExitCode != escalation.ExitOK {
		return &InvocationError{ExitCode: out.ExitCode}
	}
	return nil
}

func (a *app) newLogger(cfg *config.Config) (*logging.Logger, error) {
	level := logging.ParseLevel(strings.ToLower(cfg.Log.Level))

	var logger *logging.Logger
	if cfg.Log.File {
		var err error
		logger, err = logging.NewFileLogger("bustcall", "cli", level, cfg.Log.JSON)
		if err != nil {
			return nil, err
		}
	} else {
		logger = logging.NewLogger(level, cfg.Log.JSON)
	}
	// stdout is reserved for --output and --metrics
	logger.SetOutput(a.stderr)
	return logger, nil
}

func newProbe(cfg *config.Config, simulated bool, score int) (probe.Probe, error) {
	if simulated {
		return probe.Static(score), nil
	}

	rules := probe.DefaultRules()
	if cfg.Probe.Rules != "" {
		var err error
		rules, err = probe.LoadRules(cfg.Probe.Rules)
		if err != nil {
			return nil, err
		}
	}
	p, err := probe.NewPattern(rules)
	if err != nil {
		return nil, err
	}

	rc := retry.DefaultConfig()
	rc.MaxRetries = cfg.Probe.Retries
	return &probe.Retrying{Probe: p, Timeout: cfg.Probe.Timeout, Retry: rc}, nil
}

// newInvalidator returns the backend and, for network backends, the
// connection to close when done.
func newInvalidator(cfg *config.Config) (cache.Invalidator, io.Closer) {
	if cfg.Cache.Backend == config.BackendRedis {
		rc := cfg.Cache.Redis
		client := cache.NewRedisClient(cache.RedisOptions{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Prefix:   rc.Prefix,
			Timeout:  rc.Timeout,
		})
		return cache.NewRedis(client, rc.Prefix, rc.Timeout), client
	}
	return cache.NewOsFS(cfg.Cache.Root), nil
}

func (a *app) writeOutputs(cfg *config.Config, metrics *report.Metrics, result *report.Result, logger *logging.Logger) {
	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("failed to write metrics textfile", map[string]interface{}{
				"path":  cfg.Metrics.Textfile,
				"error": err.Error(),
			})
		}
	}
	if a.printMetrics {
		if err := metrics.Encode(a.stdout); err != nil {
			logger.Warn("failed to encode metrics", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.jsonOutput() && result != nil {
		if err := result.WriteJSON(a.stdout); err != nil {
			logger.Warn("failed to write result", map[string]interface{}{"error": err.Error()})
		}
	}
}
