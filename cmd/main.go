// Command power-schedule serves and inspects weekly power schedules.
//
// @title                       Power Schedule API
// @version                     1.0
// @description                 Weekly on/off power schedules with a live matrix editor.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"fmt"
	"os"

	"power_schedule/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgPath string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "power-schedule",
	Short:         "Weekly power schedule service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (default configs/config.yml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("db"))
}

// loadConfig reads configuration once flags have been parsed.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
