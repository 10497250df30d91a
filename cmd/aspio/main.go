package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    config
	logger *zap.Logger
)

// config holds the defaults read from .aspio.yaml. Command-line flags win
// over the file.
type config struct {
	Backend  string `yaml:"backend"`  // dlvhex2 or mangle
	Solver   string `yaml:"solver"`   // path to the dlvhex2 executable
	MaxInt   int    `yaml:"maxint"`   // integer domain bound
	Registry string `yaml:"registry"` // Go source file with constructors
}

func defaultConfig() config {
	return config{Backend: "dlvhex2"}
}

// loadConfig reads the given path, or .aspio.yaml from the working directory
// when no path is set. A missing default file is not an error.
func loadConfig(path string) (config, error) {
	c := defaultConfig()
	explicit := path != ""
	if !explicit {
		path = ".aspio.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return c, nil
		}
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

var rootCmd = &cobra.Command{
	Use:   "aspio",
	Short: "aspio - run annotated ASP programs against Go-style data",
	Long: `aspio runs Answer Set Programming (ASP) programs whose %! comments
declare how input data maps to facts and how answer sets map back to
structured output.

Input data is read as JSON, output objects are printed as JSON, one
object per answer set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg, err = loadConfig(configPath)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default .aspio.yaml)")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
