// Package provider builds the llm.Streamer for a platform.
package provider

import (
	"fmt"
	"os"

	"github.com/papercomputeco/consolechat/pkg/llm"
	"github.com/papercomputeco/consolechat/pkg/llm/provider/genai"
	"github.com/papercomputeco/consolechat/pkg/llm/provider/ollama"
	"github.com/papercomputeco/consolechat/pkg/llm/provider/openai"
)

// Options configures the streamer returned by New.
type Options = llm.Options

// New creates a Streamer for platform.
func New(platform llm.Platform, opts Options) (llm.Streamer, error) {
	switch platform {
	case llm.DeepSeek, llm.Tongyi, llm.OpenAI:
		return openai.New(platform, opts)
	case llm.GoogleGenAI:
		return genai.New(opts)
	case llm.Ollama:
		return ollama.New(opts), nil
	default:
		return nil, fmt.Errorf("unknown platform: %q (supported: %v)", platform, llm.Platforms())
	}
}

// FromEnv is New with the API key read from the platform's environment
// variable (DEEPSEEK_API_KEY, DASHSCOPE_API_KEY, ...).
func FromEnv(platform llm.Platform, opts Options) (llm.Streamer, error) {
	if env := platform.APIKeyEnv(); env != "" && opts.APIKey == "" {
		opts.APIKey = os.Getenv(env)
	}
	return New(platform, opts)
}
