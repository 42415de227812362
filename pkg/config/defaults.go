package config

const (
	defaultPlatform          = "deepseek"
	defaultServerListen      = ":8081"
	defaultClientAPITarget   = "http://localhost:8081"
	defaultContentStreamPath = "ai/stream"
	defaultWorkers           = 3
	defaultKafkaTopic        = "consolechat.messages"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APITarget:         defaultClientAPITarget,
			Platform:          defaultPlatform,
			ContentStreamPath: defaultContentStreamPath,
		},
		Server: ServerConfig{
			Listen:  defaultServerListen,
			Workers: defaultWorkers,
		},
		LLM: LLMConfig{
			DefaultPlatform: defaultPlatform,
		},
		Events: EventsConfig{
			KafkaTopic: defaultKafkaTopic,
		},
	}
}
