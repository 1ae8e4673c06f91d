package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/tejashwikalptaru/archiveplayer/internal/app"
	"github.com/tejashwikalptaru/archiveplayer/internal/config"
)

type globalFlags struct {
	config    string
	item      string
	logLevel  string
	mockAudio bool
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the configuration once and applies flag overrides.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		c.configPath, c.configExists = path, exists

		if item := strings.TrimSpace(c.flags.item); item != "" {
			cfg.Source.ItemID = item
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newApplication assembles the application from the loaded configuration.
// Commands that never play audio pass silent to skip the speaker.
func (c *commandContext) newApplication(silent bool) (*app.Application, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return app.NewApplication(app.Options{
		Config:       cfg,
		UseMockAudio: silent || c.flags.mockAudio,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
