// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwtutor/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "cwtutor",
	Short: "Morse code (CW) tutor",
	Long: `A Morse code tutor: practise sending with a keyboard, paddle or keyed tone,
get scored character by character and track progress per profile.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().StringP("profile", "p", "default", "profile to use")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	rootCmd.AddCommand(practiceCmd, listenCmd, encodeCmd, decodeCmd, profileCmd, statsCmd)
}

func bindFlags() {
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	bindFlags()
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}
