package llm

import "strings"

// Platform names an upstream LLM service.
type Platform string

const (
	DeepSeek    Platform = "deepseek"
	Tongyi      Platform = "tongyi"
	OpenAI      Platform = "openai"
	GoogleGenAI Platform = "google-genai"
	Ollama      Platform = "ollama"
)

// DefaultPlatform is used whenever a request names no platform, or one
// that is not recognized.
const DefaultPlatform = DeepSeek

// Platforms returns every supported platform.
func Platforms() []Platform {
	return []Platform{DeepSeek, Tongyi, OpenAI, GoogleGenAI, Ollama}
}

// ParsePlatform maps s onto a Platform, falling back to DefaultPlatform.
func ParsePlatform(s string) Platform {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case DeepSeek, Tongyi, OpenAI, GoogleGenAI, Ollama:
		return p
	default:
		return DefaultPlatform
	}
}

// DefaultModel is the model conversations on p are created with.
func (p Platform) DefaultModel() string {
	switch p {
	case Tongyi:
		return "qwen-plus"
	case OpenAI:
		return "gpt-3.5-turbo"
	case GoogleGenAI:
		return "gemini-pro"
	case Ollama:
		return "llama3.2"
	default:
		return "deepseek-chat"
	}
}

// APIKeyEnv is the environment variable holding the platform's API key.
// Ollama needs none and returns "".
func (p Platform) APIKeyEnv() string {
	switch p {
	case Tongyi:
		return "DASHSCOPE_API_KEY"
	case OpenAI:
		return "OPENAI_API_KEY"
	case GoogleGenAI:
		return "GOOGLE_API_KEY"
	case Ollama:
		return ""
	default:
		return "DEEPSEEK_API_KEY"
	}
}

// DefaultUpstream is the base URL used when no upstream override is set.
func (p Platform) DefaultUpstream() string {
	switch p {
	case Tongyi:
		return "https://dashscope.aliyuncs.com/compatible-mode"
	case OpenAI:
		return "https://api.openai.com"
	case GoogleGenAI:
		return "https://generativelanguage.googleapis.com"
	case Ollama:
		return "http://localhost:11434"
	default:
		return "https://api.deepseek.com"
	}
}

func (p Platform) String() string { return string(p) }
