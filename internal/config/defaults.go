package config

// Pipeline names accepted by generation.default_pipeline.
const (
	PipelineMock   = "mock"
	PipelineRemote = "remote"
)

// Default configuration values.
const (
	DefaultJobsDir = "~/.local/share/recut/jobs"
	DefaultLogDir  = "~/.local/share/recut/logs"
	DefaultAPIBind = "127.0.0.1:7484"

	DefaultBaseURL         = "https://generativelanguage.googleapis.com"
	DefaultChatModel       = "gemini-2.0-flash"
	DefaultImageModel      = "gemini-2.0-flash-exp-image-generation"
	DefaultVideoModel      = "veo-3.1-generate-preview"
	DefaultPipeline        = PipelineMock
	DefaultTimeoutSeconds  = 120
	DefaultPollInterval    = 10
	DefaultPollTimeout     = 900
	DefaultVideoDuration   = 5
	DefaultAspectRatio     = "16:9"
	DefaultSceneThreshold  = 0.4
	DefaultMinShotSeconds  = 1.0
	DefaultMaxShotSeconds  = 30.0
	DefaultMaxShots        = 99
	DefaultFallbackSeconds = 5.0
	DefaultLockTimeout     = 30
	DefaultLogFormat       = "console"
	DefaultLogLevel        = "info"
	DefaultLogRetention    = 30
)

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			JobsDir: DefaultJobsDir,
			LogDir:  DefaultLogDir,
			APIBind: DefaultAPIBind,
		},
		Generation: Generation{
			BaseURL:              DefaultBaseURL,
			ChatModel:            DefaultChatModel,
			ImageModel:           DefaultImageModel,
			VideoModel:           DefaultVideoModel,
			DefaultPipeline:      DefaultPipeline,
			TimeoutSeconds:       DefaultTimeoutSeconds,
			PollIntervalSeconds:  DefaultPollInterval,
			PollTimeoutSeconds:   DefaultPollTimeout,
			VideoDurationSeconds: DefaultVideoDuration,
			AspectRatio:          DefaultAspectRatio,
		},
		Decompose: Decompose{
			SceneThreshold:  DefaultSceneThreshold,
			MinShotSeconds:  DefaultMinShotSeconds,
			MaxShotSeconds:  DefaultMaxShotSeconds,
			MaxShots:        DefaultMaxShots,
			FallbackSeconds: DefaultFallbackSeconds,
		},
		Engine: Engine{
			LockTimeoutSeconds: DefaultLockTimeout,
		},
		Logging: Logging{
			Format:        DefaultLogFormat,
			Level:         DefaultLogLevel,
			RetentionDays: DefaultLogRetention,
		},
	}
}
