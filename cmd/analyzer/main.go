package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the base command for the StockAnalyzer CLI
var rootCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Stock price forecaster and pairs-arbitrage analyzer",
	Long: `StockAnalyzer forecasts closing prices over a trading-day horizon,
fuses model outputs into a BUY/SELL/HOLD signal with risk-scaled trade
levels and watches configured pairs for stretched spreads.

Configuration is read from --config, then CONFIG_PATH, then configs/config.yaml.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config YAML")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(arbitrageCmd)
	rootCmd.AddCommand(scanCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config and wires the service for one-shot commands.
func setup() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	// stdout carries command output
	if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	return newApp(cfg, false)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func checkFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("unsupported format %q (use text or json)", format)
}
