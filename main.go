package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"isoforge/pkg/cli"
	"isoforge/pkg/config"
	"isoforge/pkg/container"
	"isoforge/pkg/display"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	res, err := IsoforgeEngine(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(res.ExitCode)
}

func IsoforgeEngine(ctx context.Context, args []string) (*cli.ExecutionResult, error) {
	// 1. Parse cli.def
	cliEngine, err := cli.MakeEngine()
	if err != nil {
		return nil, fmt.Errorf("INTERNAL ERROR:  parsing CLI definition: %w", err)
	}

	// 2. Parse command line arguments
	pr := cliEngine.Parse(args)

	// 3. Logging and console
	verbose, _ := pr.Invocation.Global["verbose"].(bool)
	format, _ := pr.Invocation.Global["log-format"].(string)
	level := "info"
	if verbose {
		level = "debug"
	}
	slog.SetDefault(newLogger(level, format, os.Stderr))

	disp := display.NewConsole()
	defer disp.Close()
	disp.SetVerbose(verbose)

	// 4. Command line errors and help
	if pr.Error != nil {
		return nil, pr.Error
	}
	if pr.Help {
		cliEngine.PrintHelp(pr.HelpArgs...)
		return &cli.ExecutionResult{ExitCode: 0}, nil
	}

	// 5. Execute the command
	sysCfg, err := config.Init(os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("error initializing config: %w", err)
	}
	sysCfg.Freeze()

	cli.Bind(cliEngine, &cli.Managers{
		SysCfg:  sysCfg,
		Disp:    disp,
		Runtime: container.NewExec(sysCfg.GetRuntime()),
		Stdout:  os.Stdout,
	})

	res, err := cliEngine.Execute(ctx, pr.Invocation)
	if err != nil {
		return nil, err
	}
	if res.Output != nil {
		disp.RenderOutput(res.Output)
	}
	return res, nil
}

func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(outW, handlerOpts))
}
