package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BloggingApp/megablog/internal/bootstrap"
	"github.com/BloggingApp/megablog/internal/config"
	"github.com/BloggingApp/megablog/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// cli holds the state shared by every command of one invocation.
type cli struct {
	verbose     bool
	configDir   string
	sessionPath string
	timeout     time.Duration

	logger *zap.Logger
	app    *bootstrap.App
	sess   *session.Session

	// ownsApp is false when the app was injected, e.g. by tests.
	ownsApp bool
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".megablog", "session.yaml")
	}
	return filepath.Join(home, ".megablog", "session.yaml")
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blogctl",
		Short: "megablog command line client",
		Long: `blogctl talks to the configured megablog backend directly.

The session credential is kept in a YAML file between invocations, so a login
carries over to later commands until logout.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.teardown()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&c.configDir, "config", ".", "Directory holding app.yaml")
	rootCmd.PersistentFlags().StringVar(&c.sessionPath, "session", defaultSessionPath(), "Session file")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(newSignUpCmd(c))
	rootCmd.AddCommand(newLoginCmd(c))
	rootCmd.AddCommand(newLogoutCmd(c))
	rootCmd.AddCommand(newWhoAmICmd(c))
	rootCmd.AddCommand(newWatchCmd(c))
	rootCmd.AddCommand(newPasswordCmd(c))
	rootCmd.AddCommand(newPostsCmd(c))

	return rootCmd
}

func (c *cli) setup(ctx context.Context) error {
	if c.logger == nil {
		logCfg := zap.NewProductionConfig()
		logCfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
		if c.verbose {
			logCfg = zap.NewDevelopmentConfig()
		}
		logger, err := logCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		c.logger = logger
	}

	if c.app == nil {
		cfg, err := config.Load(c.configDir)
		if err != nil {
			return err
		}
		app, err := bootstrap.New(ctx, cfg, c.logger)
		if err != nil {
			return err
		}
		c.app = app
		c.ownsApp = true
	}

	sess, err := session.Load(c.sessionPath)
	if err != nil {
		return err
	}
	c.sess = sess
	return nil
}

func (c *cli) teardown() error {
	if c.sess == nil {
		return nil
	}
	return session.Save(c.sessionPath, c.sess)
}

// close runs after Execute, whether or not the command failed.
func (c *cli) close() {
	if c.ownsApp && c.app != nil {
		c.app.Close()
		c.app = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

func main() {
	c := &cli{}
	err := newRootCmd(c).Execute()
	c.close()
	if err != nil {
		os.Exit(1)
	}
}
