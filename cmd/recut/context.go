package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"recut/internal/agent"
	"recut/internal/config"
	"recut/internal/engine"
	"recut/internal/generation"
	"recut/internal/logging"
	"recut/internal/media"
	"recut/internal/registry"
	"recut/internal/services/genai"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// buildEngine and buildAgent override construction in tests.
	buildEngine func(cfg *config.Config) (*engine.Engine, func(), error)
	buildAgent  func(cfg *config.Config, logger *slog.Logger) *agent.Agent
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// openEngine builds the engine for one command invocation. The returned
// cleanup closes the registry store and must run after the command finishes.
func (c *commandContext) openEngine() (*engine.Engine, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if c.buildEngine != nil {
		return c.buildEngine(cfg)
	}

	logger := c.commandLogger(cfg)
	index, err := registry.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	mediaClient, err := media.New(cfg.FFmpegBinary(), cfg.FFprobeBinary())
	if err != nil {
		index.Close()
		return nil, nil, err
	}
	pipelines := generation.NewRegistry(mediaClient, c.genaiClient(cfg), generation.SettingsFromConfig(cfg), logger)
	eng, err := engine.New(cfg, mediaClient, pipelines, index, logger)
	if err != nil {
		index.Close()
		return nil, nil, err
	}
	return eng, func() { _ = index.Close() }, nil
}

func (c *commandContext) withEngine(fn func(eng *engine.Engine) error) error {
	eng, done, err := c.openEngine()
	if err != nil {
		return err
	}
	defer done()
	return fn(eng)
}

func (c *commandContext) genaiClient(cfg *config.Config) *genai.Client {
	if cfg == nil || strings.TrimSpace(cfg.Generation.APIKey) == "" {
		return nil
	}
	return genai.NewClient(genai.Config{
		APIKey:         cfg.Generation.APIKey,
		BaseURL:        cfg.Generation.BaseURL,
		ChatModel:      cfg.Generation.ChatModel,
		ImageModel:     cfg.Generation.ImageModel,
		VideoModel:     cfg.Generation.VideoModel,
		TimeoutSeconds: cfg.Generation.TimeoutSeconds,
	})
}

func (c *commandContext) chatAgent(cfg *config.Config, logger *slog.Logger) *agent.Agent {
	if c.buildAgent != nil {
		return c.buildAgent(cfg, logger)
	}
	client := c.genaiClient(cfg)
	if client == nil {
		return nil
	}
	return agent.New(client, logger)
}

// commandLogger logs to the dated CLI log file only. Command stdout stays
// reserved for rendered output.
func (c *commandContext) commandLogger(cfg *config.Config) *slog.Logger {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
