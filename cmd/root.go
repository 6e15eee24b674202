package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/galshelf/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `            _     _          _  __
  __ _  __ _| |___| |__   ___| |/ _|
 / _' |/ _' | / __| '_ \ / _ \ | |_
| (_| | (_| | \__ \ | | |  __/ |  _|
 \__, |\__,_|_|___/_| |_|\___|_|_|
 |___/
`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "galshelf",
	Short: "Browse, filter and bookmark a parsed galgame catalog.",
	Long: LOGO + `
galshelf loads the game catalog produced by the markdown parsing service,
lets you search, filter, sort and page through it, and keeps your favorites
and last folder between runs.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.galshelf.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

func setDefaults() {
	home, _ := homedir.Dir()
	viper.SetDefault("catalog.endpoint", "http://127.0.0.1:7500")
	viper.SetDefault("catalog.retries", 2)
	viper.SetDefault("catalog.timeout", 30)
	viper.SetDefault("prefs.backend", "sqlite")
	viper.SetDefault("prefs.path", "")
	viper.SetDefault("view.page_size", 12)
	viper.SetDefault("images.margin", 200)
	viper.SetDefault("images.concurrency", 6)
	viper.SetDefault("prefs.dir", filepath.Join(home, ".config", "galshelf"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".galshelf")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("galshelf")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".galshelf.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
	utils.Log.SetOutput(os.Stderr)
}
