package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ironsheep/beam-profile-mcp/internal/beam"
	"github.com/ironsheep/beam-profile-mcp/internal/config"
	"github.com/ironsheep/beam-profile-mcp/internal/imaging"
	"github.com/ironsheep/beam-profile-mcp/internal/log"
	"github.com/ironsheep/beam-profile-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("beam-profile-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp(os.Stdout)
			return
		}
	}

	// Logging goes to stderr (stdout is for MCP protocol)
	cfg := config.Load()
	log.Init(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) > 1 && os.Args[1] == "fit" {
		if err := runFit(cfg, os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "beam-mcp fit: %v\n", err)
			os.Exit(1)
		}
		return
	}

	log.Debug("starting beam profile MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)

	srv := server.New(cfg, Version)
	if err := srv.Run(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "beam-profile-mcp - MCP server for laser beam profile analysis")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  beam-mcp [options]                                    Serve MCP on stdin/stdout")
	fmt.Fprintln(w, "  beam-mcp fit [-method iso|gauss] [-decimation n] <path>  Fit one frame and print JSON")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintf(w, "  %s=debug|info|warn|error    Log level (default %s)\n", config.EnvLogLevel, config.DefaultLogLevel)
	fmt.Fprintf(w, "  %s=text|json               Log format (default %s)\n", config.EnvLogFormat, config.DefaultLogFormat)
	fmt.Fprintf(w, "  %s=iso|gauss           Estimator when a call names none (default %s)\n", config.EnvDefaultMethod, config.DefaultMethod)
	fmt.Fprintf(w, "  %s=n               Default decimation (default %d)\n", config.EnvDefaultDecimation, config.DefaultDecimation)
	fmt.Fprintf(w, "  %s=n                     ISO iteration cap (default %d)\n", config.EnvISOMaxIterations, config.DefaultISOMaxIterations)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "This server communicates via MCP protocol over stdin/stdout.")
	fmt.Fprintln(w, "Configure it in your MCP client (e.g., Claude Desktop).")
}

// fitFlags declares the flags of the fit subcommand, defaulted from cfg.
func fitFlags(cfg config.Config) (fs *flag.FlagSet, method *string, decimation *int) {
	fs = flag.NewFlagSet("fit", flag.ContinueOnError)
	method = fs.String("method", cfg.Method.String(), "estimator: iso or gauss")
	decimation = fs.Int("decimation", cfg.Decimation, "keep every nth row/column before fitting")
	return fs, method, decimation
}

// runFit fits a single frame and writes the profile as indented JSON.
func runFit(cfg config.Config, args []string, w io.Writer) error {
	fs, methodName, decimation := fitFlags(cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one frame path, got %d", fs.NArg())
	}

	method, err := beam.ParseMethod(*methodName)
	if err != nil {
		return err
	}
	frame, err := imaging.NewFrameCache().Load(fs.Arg(0))
	if err != nil {
		return err
	}
	p, err := beam.Fit(frame.Pixels, method, cfg.FitOptions(*decimation)...)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
