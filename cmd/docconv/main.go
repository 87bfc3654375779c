// Command docconv converts documents through a convertd-compatible server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kirillkom/document-converter/internal/config"
	"github.com/kirillkom/document-converter/internal/observability/logging"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "docconv",
	Short: "Convert documents between PDF, DOCX, TXT, HTML and Markdown",
	Long: `docconv uploads a document to a conversion server, reports upload and
processing progress, and saves the converted file locally.

Settings come from flags, DOCCONV_* environment variables, a docconv.yaml
config file, and finally the server-wide environment (CONVERTER_API_URL,
DOWNLOAD_DIR, CLIENT_TIMEOUT_SECONDS).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(logging.NewTextLogger(cmd.ErrOrStderr(), viper.GetString("log_level")))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./docconv.yaml or ~/.config/docconv/config.yaml)")
	flags.String("api-url", "", "conversion server base URL")
	flags.Duration("timeout", 0, "request timeout (e.g. 90s)")
	flags.Bool("legacy", false, "use the legacy /converter route and form fields")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")

	for key, flag := range map[string]string{
		"api_url":   "api-url",
		"timeout":   "timeout",
		"legacy":    "legacy",
		"log_level": "log-level",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docconv")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docconv"))
		}
	}

	viper.SetEnvPrefix("DOCCONV")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// clientConfig layers CLI settings over the environment configuration.
func clientConfig() config.Config {
	cfg := config.Load()
	if v := strings.TrimSpace(viper.GetString("api_url")); v != "" {
		cfg.ConverterAPIURL = v
	}
	if v := viper.GetDuration("timeout"); v > 0 {
		cfg.ClientTimeoutSeconds = int((v + time.Second - 1) / time.Second)
	}
	if viper.GetBool("legacy") {
		cfg.ConverterLegacyForm = true
	}
	if v := strings.TrimSpace(viper.GetString("download_dir")); v != "" {
		cfg.DownloadDir = v
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
