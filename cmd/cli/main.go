package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kosarica/purchase-optimizer/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "purchase-optimizer",
	Short: "Purchase Optimizer CLI - cheapest way to buy a shopping list online",
	Long: `A CLI tool that decides how many units of each item to buy from each online
retailer so that the total bill, item prices plus shipping, is as low as possible.
Retailers waive their flat shipping fee once an order reaches their free-shipping
threshold, and the optimizer may buy a few extra units when that lowers the bill.

Problems are read from a four-sheet workbook (items, prices, inventory, shipping)
and results can be written back to a workbook.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// persistentPreRun runs before each command and initializes the logger
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}
	logger = initLogger(os.Stderr)
	return nil
}

func initLogger(w io.Writer) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.WarnLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil && parsedLevel > level {
			level = parsedLevel
		}
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	// Console format unless JSON is asked for explicitly
	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" && !verbose {
		output = w
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: w, NoColor: noColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return &logger
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
