package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent consolechat configuration stored as
// config.toml in the .consolechat/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Client  ClientConfig  `toml:"client"`
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	LLM     LLMConfig     `toml:"llm"`
	Events  EventsConfig  `toml:"events"`
}

// ClientConfig holds settings for CLI commands that talk to a running chat
// backend (consolechat chat, consolechat conversations, consolechat drawing).
// The bearer token is deliberately absent: it is only ever read from the
// --token flag or CONSOLECHAT_CLIENT_TOKEN.
type ClientConfig struct {
	APITarget         string `toml:"api_target,omitempty"`
	Platform          string `toml:"platform,omitempty"`
	ContentStreamPath string `toml:"content_stream_path,omitempty"`
}

// ServerConfig holds chat backend settings.
type ServerConfig struct {
	Listen    string `toml:"listen,omitempty"`
	WSListen  string `toml:"ws_listen,omitempty"`
	JWTSecret string `toml:"jwt_secret,omitempty"`
	Workers   uint   `toml:"workers,omitempty"`
}

// StorageConfig selects the conversation store. PostgresDSN wins over
// SQLitePath; with neither set the backend keeps everything in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// LLMConfig holds upstream platform settings.
type LLMConfig struct {
	DefaultPlatform string `toml:"default_platform,omitempty"`
	Upstream        string `toml:"upstream,omitempty"`
}

// EventsConfig holds the Kafka publisher settings. Empty brokers disable
// publishing.
type EventsConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"client.platform": {
		get: func(c *Config) string { return c.Client.Platform },
		set: func(c *Config, v string) error { c.Client.Platform = v; return nil },
	},
	"client.content_stream_path": {
		get: func(c *Config) string { return c.Client.ContentStreamPath },
		set: func(c *Config, v string) error { c.Client.ContentStreamPath = v; return nil },
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.ws_listen": {
		get: func(c *Config) string { return c.Server.WSListen },
		set: func(c *Config, v string) error { c.Server.WSListen = v; return nil },
	},
	"server.jwt_secret": {
		get: func(c *Config) string { return c.Server.JWTSecret },
		set: func(c *Config, v string) error { c.Server.JWTSecret = v; return nil },
	},
	"server.workers": {
		get: func(c *Config) string {
			if c.Server.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Server.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for server.workers: %w", err)
			}
			c.Server.Workers = uint(n)
			return nil
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"llm.default_platform": {
		get: func(c *Config) string { return c.LLM.DefaultPlatform },
		set: func(c *Config, v string) error { c.LLM.DefaultPlatform = v; return nil },
	},
	"llm.upstream": {
		get: func(c *Config) string { return c.LLM.Upstream },
		set: func(c *Config, v string) error { c.LLM.Upstream = v; return nil },
	},
	"events.kafka_brokers": {
		get: func(c *Config) string { return c.Events.KafkaBrokers },
		set: func(c *Config, v string) error { c.Events.KafkaBrokers = v; return nil },
	},
	"events.kafka_topic": {
		get: func(c *Config) string { return c.Events.KafkaTopic },
		set: func(c *Config, v string) error { c.Events.KafkaTopic = v; return nil },
	},
}
