package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const devSecret = "dev_secret_change_me"

type Config struct {
	bind           string
	port           int
	dbPath         string
	jwtSecret      string
	jwtExpires     time.Duration
	cookieName     string
	clientOrigin   string
	dailySalt      string
	mismatchDelay  time.Duration
	sessionTimeout time.Duration
	logLevel       string
	production     bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.mismatchDelay <= 0 {
		return fmt.Errorf("invalid mismatch delay (must be positive): %s", c.mismatchDelay)
	}
	if c.jwtExpires <= 0 {
		return fmt.Errorf("invalid jwt expiry (must be positive): %s", c.jwtExpires)
	}
	if c.jwtSecret == "" {
		return errors.New("--jwt-secret must not be empty")
	}
	if c.production && c.jwtSecret == devSecret {
		return errors.New("--jwt-secret must be set in production")
	}
	if c.dbPath == "" {
		return errors.New("--db must not be empty")
	}
	return nil
}

func newCmd(cfg *Config, run func(cmd *cobra.Command, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MEMORY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "memory",
		Short:         "Serves a single-player card matching memory game over HTTP.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: MEMORY_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 5175, "port to listen on (env: MEMORY_PORT)")
	fs.StringVar(&cfg.dbPath, "db", "./data/app.db", "path to sqlite database (env: MEMORY_DB)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", devSecret, "hmac secret for auth tokens (env: MEMORY_JWT_SECRET)")
	fs.DurationVar(&cfg.jwtExpires, "jwt-expires", 14*24*time.Hour, "auth token lifetime (env: MEMORY_JWT_EXPIRES)")
	fs.StringVar(&cfg.cookieName, "cookie-name", "memory_token", "auth cookie name (env: MEMORY_COOKIE_NAME)")
	fs.StringVar(&cfg.clientOrigin, "client-origin", "http://localhost:5173", "origin allowed by CORS and used in share links (env: MEMORY_CLIENT_ORIGIN)")
	fs.StringVar(&cfg.dailySalt, "daily-salt", "local_dev_salt", "salt for the daily deck seed (env: MEMORY_DAILY_SALT)")
	fs.DurationVar(&cfg.mismatchDelay, "mismatch-delay", time.Second, "how long a mismatched pair stays face-up (env: MEMORY_MISMATCH_DELAY)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle games are dropped, 0 to disable (env: MEMORY_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "zerolog level: trace, debug, info, warn, error (env: MEMORY_LOG_LEVEL)")
	fs.BoolVar(&cfg.production, "production", false, "secure cookies and JSON logs (env: MEMORY_PRODUCTION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("memory v{{.Version}}\n")

	return cmd
}
