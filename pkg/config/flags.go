package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on "consolechat chat", "consolechat conversations" and "consolechat drawing").
type Flag struct {
	// Name is the long flag name (e.g. "upstream").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "llm.upstream").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPITarget       = "api-target"
	FlagToken           = "token"
	FlagPlatform        = "platform"
	FlagContentPath     = "content-path"
	FlagListen          = "listen"
	FlagWSListen        = "ws-listen"
	FlagJWTSecret       = "jwt-secret"
	FlagWorkers         = "workers"
	FlagSQLite          = "sqlite"
	FlagPostgres        = "postgres"
	FlagDefaultPlatform = "default-platform"
	FlagUpstream        = "upstream"
	FlagKafkaBrokers    = "kafka-brokers"
	FlagKafkaTopic      = "kafka-topic"
)

// ClientFlags are shared by every command that talks to a running backend.
var ClientFlags = FlagSet{
	FlagAPITarget:   {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "Chat backend URL"},
	FlagToken:       {Name: "token", Shorthand: "t", ViperKey: "client.token", Description: "Bearer token (never persisted)"},
	FlagPlatform:    {Name: "platform", Shorthand: "p", ViperKey: "client.platform", Description: "LLM platform (deepseek, tongyi, openai, google-genai, ollama)"},
	FlagContentPath: {Name: "content-path", ViperKey: "client.content_stream_path", Description: "Path of the stateless prompt stream endpoint"},
}

// ServerFlags configure "consolechat serve".
var ServerFlags = FlagSet{
	FlagListen:          {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the chat backend to listen on"},
	FlagWSListen:        {Name: "ws-listen", ViperKey: "server.ws_listen", Description: "Address for the websocket endpoint (disabled when empty)"},
	FlagJWTSecret:       {Name: "jwt-secret", ViperKey: "server.jwt_secret", Description: "HS256 secret for bearer tokens"},
	FlagWorkers:         {Name: "workers", ViperKey: "server.workers", Description: "Number of persistence workers"},
	FlagSQLite:          {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (default: in-memory)"},
	FlagPostgres:        {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string (takes precedence over --sqlite)"},
	FlagDefaultPlatform: {Name: "default-platform", ViperKey: "llm.default_platform", Description: "Platform for requests that name none"},
	FlagUpstream:        {Name: "upstream", Shorthand: "u", ViperKey: "llm.upstream", Description: "Override the upstream URL of the default platform"},
	FlagKafkaBrokers:    {Name: "kafka-brokers", ViperKey: "events.kafka_brokers", Description: "Comma-separated Kafka brokers for message events (disabled when empty)"},
	FlagKafkaTopic:      {Name: "kafka-topic", ViperKey: "events.kafka_topic", Description: "Kafka topic for message events"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
