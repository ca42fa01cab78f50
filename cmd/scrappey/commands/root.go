package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pim97/scrappey-go/lib/configutil"
	"github.com/pim97/scrappey-go/lib/requests"
	"github.com/pim97/scrappey-go/lib/restyutil"
	"github.com/pim97/scrappey-go/lib/scrappey"
	"github.com/pim97/scrappey-go/lib/telemetry"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "scrappey.json5"

// Config is read from scrappey.json5, scrappey.local.json5 overrides it.
type Config struct {
	APIKey     string  `json:"api_key"`
	BaseURL    string  `json:"base_url"`
	Timeout    string  `json:"timeout"`
	RateLimit  float64 `json:"rate_limit"`
	Cloudflare bool    `json:"cloudflare"`
	// DebugDir receives a dump of every http exchange when set.
	DebugDir string `json:"debug_dir"`
}

var (
	configPath string
	flags      Config
	timeout    time.Duration
	debug      bool

	client *scrappey.Client
)

var rootCmd = &cobra.Command{
	Use:           "scrappey",
	Short:         "scrappey is a CLI for the Scrappey scraping API.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(debug)

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts, err := cfg.clientOptions()
		if err != nil {
			return err
		}
		client, err = scrappey.NewClient(opts)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if client == nil {
			return nil
		}
		return client.Close()
	},
}

func init() {
	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&configPath, "config", defaultConfigPath, "The json5 config file to read.")
	pflags.StringVar(&flags.APIKey, "api-key", "", "The API key, defaults to $"+requests.APIKeyEnv+".")
	pflags.StringVar(&flags.BaseURL, "base-url", "", "The API endpoint.")
	pflags.DurationVar(&timeout, "timeout", 0, "The timeout of a single API call.")
	pflags.BoolVar(&debug, "debug", false, "Enables debug logging.")
}

// loadConfig layers the config file, the environment and the flags, in
// increasing order of priority.
func loadConfig(cmd *cobra.Command) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](configPath)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		slog.Debug("no config file found", "path", configPath)
		err = nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(requests.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv(requests.BaseURLEnv)
	}
	if flags.APIKey != "" {
		cfg.APIKey = flags.APIKey
	}
	if flags.BaseURL != "" {
		cfg.BaseURL = flags.BaseURL
	}
	if timeout > 0 {
		cfg.Timeout = timeout.String()
	}
	return cfg, nil
}

func (c Config) clientOptions() (scrappey.ClientOptions, error) {
	opts := scrappey.ClientOptions{
		APIKey:              c.APIKey,
		BaseURL:             c.BaseURL,
		RateLimit:           c.RateLimit,
		CloudflareTransport: c.Cloudflare,
	}
	if c.APIKey == "" {
		return opts, fmt.Errorf("no api key, pass --api-key or set %s", requests.APIKeyEnv)
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return opts, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
		opts.Timeout = d
	}
	if c.DebugDir != "" {
		output, err := restyutil.NewFilesystemOutput(c.DebugDir)
		if err != nil {
			return opts, fmt.Errorf("debug dir: %w", err)
		}
		opts.DebugOutput = output
	}
	return opts, nil
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
