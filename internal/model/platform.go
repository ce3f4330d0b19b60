package model

// Platform identifies one AI chat assistant queried for organic mentions.
type Platform string

const (
	PlatformChatGPT    Platform = "chatgpt"
	PlatformClaude     Platform = "claude"
	PlatformPerplexity Platform = "perplexity"
	PlatformGemini     Platform = "gemini"
)

// AllPlatforms returns the platforms queried during a scan, in display order.
func AllPlatforms() []Platform {
	return []Platform{PlatformChatGPT, PlatformClaude, PlatformPerplexity, PlatformGemini}
}

// Valid reports whether p names a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformChatGPT, PlatformClaude, PlatformPerplexity, PlatformGemini:
		return true
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}
