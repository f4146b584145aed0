package config

import (
	"os"
	"strings"
)

// normalize expands filesystem paths and applies environment fallbacks so the
// rest of the repository can use config values without further cleanup.
func (c *Config) normalize() error {
	var err error
	if c.Paths.JobsDir, err = expandPath(c.Paths.JobsDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)

	c.Generation.APIKey = strings.TrimSpace(c.Generation.APIKey)
	if c.Generation.APIKey == "" {
		for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if value := strings.TrimSpace(os.Getenv(env)); value != "" {
				c.Generation.APIKey = value
				break
			}
		}
	}
	c.Generation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Generation.BaseURL), "/")
	c.Generation.ChatModel = strings.TrimSpace(c.Generation.ChatModel)
	c.Generation.ImageModel = strings.TrimSpace(c.Generation.ImageModel)
	c.Generation.VideoModel = strings.TrimSpace(c.Generation.VideoModel)
	c.Generation.DefaultPipeline = strings.ToLower(strings.TrimSpace(c.Generation.DefaultPipeline))
	c.Generation.AspectRatio = strings.TrimSpace(c.Generation.AspectRatio)

	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	return nil
}
