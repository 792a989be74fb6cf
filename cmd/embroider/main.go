package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jward/embroider"
	"github.com/jward/embroider/internal/config"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagDB        string
	flagMarkup    string
	flagOutputDir string
	flagFilter    string
	flagStrict    bool
	flagForce     bool
	flagParallel  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "embroider",
	Short:         "Generate reference documentation from Fortran sources",
	Long:          "Embroider reads free-format Fortran, recovers modules, procedures, interfaces, derived types and parameters with their comments, and writes Textile or Markdown documents.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run, prints help by default.
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: ./"+config.FileName+")")
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.StringVar(&flagDB, "db", "", "SQLite index path; enables change detection and `list`")
	pf.StringVar(&flagMarkup, "markup", "textile", "document format: textile|markdown")
	pf.StringVar(&flagOutputDir, "output-dir", "", "write documents below this directory instead of next to the sources")
	pf.StringVar(&flagFilter, "filter", "", "Risor expression or .risor script selecting the declarations to keep")
	pf.BoolVar(&flagStrict, "strict", false, "report malformed nesting as warnings")
	pf.BoolVar(&flagForce, "force", false, "regenerate files the index reports as unchanged")
	pf.BoolVar(&flagParallel, "parallel", true, "parse and render files concurrently")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(grammarsCmd)
}

// loadSettings reads the config file and applies the flags that were set
// explicitly on the command line.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("db") {
		cfg.Database = flagDB
	}
	if flags.Changed("markup") {
		cfg.Format = flagMarkup
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = flagOutputDir
	}
	if flags.Changed("filter") {
		cfg.Filter = flagFilter
	}
	if flags.Changed("strict") {
		cfg.Strict = flagStrict
	}
	if flags.Changed("force") {
		cfg.Force = flagForce
	}
	if flags.Changed("parallel") {
		cfg.Parallel = flagParallel
	}
}

// newLogger builds the human-readable stderr logger.
func newLogger(cfg *config.Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(cfg.Level()).With().Timestamp().Logger()
}

// engineOptions translates a config into Engine options.
func engineOptions(cfg *config.Config, logger zerolog.Logger) []embroider.Option {
	opts := []embroider.Option{
		embroider.WithLogger(logger),
		embroider.WithFormat(cfg.Format),
		embroider.WithOutputDir(cfg.OutputDir),
		embroider.WithParallel(cfg.Parallel),
		embroider.WithForce(cfg.Force),
		embroider.WithStrict(cfg.Strict),
		embroider.WithIgnore(cfg.Ignore...),
		embroider.WithHeadings(embroider.Headings{
			Constants:  cfg.Headings.Constants,
			Structs:    cfg.Headings.Structs,
			Containers: cfg.Headings.Containers,
			Procedures: cfg.Headings.Procedures,
		}),
	}
	if cfg.Database != "" {
		opts = append(opts, embroider.WithStore(cfg.Database))
	}
	if cfg.Filter != "" {
		opts = append(opts, embroider.WithFilter(cfg.Filter))
	}
	return opts
}

// newEngine loads settings and builds an Engine for cmd.
func newEngine(cmd *cobra.Command, extra ...embroider.Option) (*embroider.Engine, zerolog.Logger, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := newLogger(cfg)
	if cfg.File != "" {
		logger.Debug().Str("config", cfg.File).Msg("loaded config")
	}
	e, err := embroider.New(append(engineOptions(cfg, logger), extra...)...)
	if err != nil {
		return nil, logger, fmt.Errorf("creating engine: %w", err)
	}
	return e, logger, nil
}
