package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/bustcall/internal/config"
	"github.com/psantana5/bustcall/internal/escalation"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=..."
var Version = "dev"

// InvocationError carries the process exit code out of a command. A nil Err
// means the failure was already reported.
type InvocationError struct {
	ExitCode int
	Err      error
}

func (e *InvocationError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.ExitCode)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// app holds per-invocation state shared by the commands
type app struct {
	v       *viper.Viper
	cfgFile string
	output  string

	simulateScore int
	printMetrics  bool

	stdout io.Writer
	stderr io.Writer
	exit   func(code int)
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	root := NewRootCommand(os.Stdout, os.Stderr, os.Exit)
	return exitCode(root.Execute(), os.Stderr)
}

// ioFailure marks an internal error so it never exits with the restart code
func ioFailure(err error) error {
	return &InvocationError{ExitCode: escalation.ExitPipelineFailure, Err: err}
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return escalation.ExitOK
	}
	var ie *InvocationError
	if errors.As(err, &ie) {
		if ie.Err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ie.Err)
		}
		return ie.ExitCode
	}
	// flag and unknown-command errors from cobra
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return escalation.ExitInvalidInput
}

// NewRootCommand builds the command tree. exit is called on the restart path
// after outputs are flushed.
func NewRootCommand(stdout, stderr io.Writer, exit func(code int)) *cobra.Command {
	a := &app{
		v:      viper.New(),
		stdout: stdout,
		stderr: stderr,
		exit:   exit,
	}

	rootCmd := &cobra.Command{
		Use:   "bustcall [flags] <package_name>",
		Short: "Cache integrity escalation for package caches",
		Long: `bustcall assesses the integrity of a package's cache entry, classifies it
into a severity tier and applies the tier's remediation:

  ok                nothing
  warning, danger   invalidate the cache entry
  critical, panic   invalidate, then exit 1 so the supervisor restarts the process

Exit codes: 0 success, 1 restart requested or invalid invocation, 2 pipeline failure.`,
		Version:           Version,
		Args:              a.checkPackageArg,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.initConfig() },
		RunE:              a.runBust,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.bustcall/config.yaml)")
	pf.StringVar(&a.output, "output", "text", "output format: text or json")
	pf.String("log-level", "info", "log level: debug, info, warn, error, fatal")
	pf.Bool("json-logs", false, "emit diagnostics as JSON lines")
	pf.String("backend", config.BackendFS, "cache backend: fs or redis")
	pf.String("cache-root", "", "filesystem cache root (default /tmp/cache)")
	pf.String("redis-addr", "", "redis address for the redis backend")

	f := rootCmd.Flags()
	f.String("rules", "", "probe rules file (YAML)")
	f.IntVar(&a.simulateScore, "simulate-score", 0, "skip the probe and use this score (0-255)")
	f.BoolVar(&a.printMetrics, "metrics", false, "print Prometheus metrics for this invocation to stdout")
	f.String("metrics-file", "", "write metrics to this node_exporter textfile")
	f.Bool("dry-run", false, "classify and report without invalidating or restarting")
	f.Bool("trace", false, "export spans over OTLP/HTTP")

	bind := map[string]string{
		"log.level":        "log-level",
		"log.json":         "json-logs",
		"cache.backend":    "backend",
		"cache.root":       "cache-root",
		"cache.redis.addr": "redis-addr",
	}
	for key, name := range bind {
		_ = a.v.BindPFlag(key, pf.Lookup(name))
	}
	local := map[string]string{
		"probe.rules":      "rules",
		"metrics.textfile": "metrics-file",
		"dry_run":          "dry-run",
		"tracing.enabled":  "trace",
	}
	for key, name := range local {
		_ = a.v.BindPFlag(key, f.Lookup(name))
	}

	rootCmd.AddCommand(newTiersCmd(a), newConfigCmd(a))
	return rootCmd
}

// initConfig reads the config file and environment into a.v
func (a *app) initConfig() error {
	if a.output != "text" && a.output != "json" {
		return &InvocationError{
			ExitCode: escalation.ExitInvalidInput,
			Err:      fmt.Errorf("invalid output format %q: must be text or json", a.output),
		}
	}

	config.SetDefaults(a.v)
	config.BindEnv(a.v)

	if a.cfgFile != "" {
		if _, err := os.Stat(a.cfgFile); err != nil {
			return &InvocationError{
				ExitCode: escalation.ExitPipelineFailure,
				Err:      fmt.Errorf("failed to read config: %w", err),
			}
		}
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".bustcall"))
		}
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return &InvocationError{
			ExitCode: escalation.ExitPipelineFailure,
			Err:      fmt.Errorf("failed to read config: %w", err),
		}
	}
	return nil
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, &InvocationError{ExitCode: escalation.ExitPipelineFailure, Err: err}
	}
	return cfg, nil
}

func (a *app) jsonOutput() bool {
	return a.output == "json"
}
