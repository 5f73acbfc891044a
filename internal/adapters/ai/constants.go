package ai

// ProviderName represents an AI provider identifier
type ProviderName string

// Provider name constants
const (
	ProviderNameAnthropic ProviderName = "claude"
	ProviderNameOpenAI    ProviderName = "openai"
	ProviderNameGoogle    ProviderName = "gemini"
	ProviderNameDeepSeek  ProviderName = "deepseek"
)

// String returns the string representation of the provider name
func (p ProviderName) String() string {
	return string(p)
}

// IsValid checks if the provider name is supported
func (p ProviderName) IsValid() bool {
	switch p {
	case ProviderNameAnthropic, ProviderNameOpenAI, ProviderNameGoogle, ProviderNameDeepSeek:
		return true
	default:
		return false
	}
}

// AllProviderNames returns all supported provider names
func AllProviderNames() []ProviderName {
	return []ProviderName{
		ProviderNameAnthropic,
		ProviderNameOpenAI,
		ProviderNameGoogle,
		ProviderNameDeepSeek,
	}
}

type ProviderModelName string

// Model name constants
const (
	ModelClaude37Sonnet ProviderModelName = "claude-3-7-sonnet-20250219"
	ModelClaude45Sonnet ProviderModelName = "claude-sonnet-4-5-20250929"
	ModelClaude35Haiku  ProviderModelName = "claude-3-5-haiku-latest"

	ModelGPT4o     ProviderModelName = "gpt-4o"
	ModelGPT4oMini ProviderModelName = "gpt-4o-mini"

	ModelGemini25Flash ProviderModelName = "gemini-2.5-flash"
	ModelGemini25Pro   ProviderModelName = "gemini-2.5-pro"

	ModelDeepSeekChat     ProviderModelName = "deepseek-chat"
	ModelDeepSeekReasoner ProviderModelName = "deepseek-reasoner"
)

func (m ProviderModelName) String() string {
	return string(m)
}
