package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/daxnoob/lazyimg/internal/config"
	"github.com/daxnoob/lazyimg/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries state shared by all subcommands.
type cli struct {
	configDir  string
	configFile string
	envFile    string
	logLevel   string
	noColor    bool

	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "lazyimg",
		Short: "Lazy-loading hints and image load recovery for documentation sites",
		Long: `lazyimg improves how documentation pages load their images.

In the browser it marks images lazy, prioritizes the ones in view and retries
transient load failures. The command-line tool does the same offline:

  • probe    check whether image locators exist
  • rewrite  add loading hints to an HTML page
  • serve    serve a built site with hints added on the fly`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configDir, "dir", "C", ".", "Directory containing "+config.ConfigFileName)
	flags.StringVarP(&c.configFile, "config", "c", "", "Path to a config file (overrides --dir)")
	flags.StringVar(&c.envFile, "env-file", ".env", "Load LAZYIMG_* variables from this file if it exists")
	flags.StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.BoolVar(&c.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		c.probeCmd(),
		c.rewriteCmd(),
		c.serveCmd(),
		versionCmd(stdout),
	)
	return root
}

func (c *cli) setup() error {
	if c.noColor {
		errors.DisableColors()
	}

	level, err := parseLevel(c.logLevel)
	if err != nil {
		return err
	}
	c.logger = slog.New(tint.NewHandler(c.stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    c.noColor,
	}))

	if err := config.LoadEnvFile(c.envFile); err != nil {
		return err
	}

	var cfg *config.Config
	if c.configFile != "" {
		cfg, err = config.LoadFile(c.configFile)
	} else {
		cfg, err = config.Load(c.configDir)
	}
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	c.cfg = cfg
	c.logger.Debug("config loaded", "path", cfg.Path())
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.New("L080").WithSuggestion(fmt.Sprintf("got %q", s))
}
