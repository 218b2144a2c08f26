package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/joho/godotenv"
)

// Load reads the .env file specified by DIALECTIC_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("DIALECTIC_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d < 0 {
		return def
	}
	return d
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return f
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabaseURL is optional; empty means debates are kept in memory only.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// SolverProvider returns the provider backing the solver role.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, gemini, cerebras
func SolverProvider() string {
	p := os.Getenv("SOLVER_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// ReviewerProvider returns the provider backing the reviewer role.
// Defaults to "anthropic" so the two roles don't share one vendor's
// blind spots.
func ReviewerProvider() string {
	p := os.Getenv("REVIEWER_PROVIDER")
	if p == "" {
		return "anthropic"
	}
	return p
}

// SolverModel overrides the provider's default model. Empty keeps the
// provider default.
func SolverModel() string {
	return os.Getenv("SOLVER_MODEL")
}

func ReviewerModel() string {
	return os.Getenv("REVIEWER_MODEL")
}

// APIKeyFor maps a provider name to its key env var.
func APIKeyFor(provider string) string {
	switch provider {
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	default:
		return OpenAIAPIKey()
	}
}

// SolverAPIKey returns the API key for the configured solver provider.
func SolverAPIKey() string {
	return APIKeyFor(SolverProvider())
}

// ReviewerAPIKey returns the API key for the configured reviewer provider.
func ReviewerAPIKey() string {
	return APIKeyFor(ReviewerProvider())
}

// Pace profiles. Each sets the visible rhythm of a debate; slower profiles
// read like a considered exchange, faster ones like a quick huddle.
var profiles = map[string]domain.PaceConfig{
	"slow": {
		MinTurn:     2 * time.Second,
		Gap:         time.Second,
		JitterBound: 300 * time.Millisecond,
		RevealRate:  45,
		MaxRounds:   12,
	},
	"medium": {
		MinTurn:     1200 * time.Millisecond,
		Gap:         600 * time.Millisecond,
		JitterBound: 180 * time.Millisecond,
		RevealRate:  70,
		MaxRounds:   12,
	},
	"fast": {
		MinTurn:     600 * time.Millisecond,
		Gap:         300 * time.Millisecond,
		JitterBound: 90 * time.Millisecond,
		RevealRate:  110,
		MaxRounds:   12,
	},
}

// PaceProfile looks up a named profile.
func PaceProfile(name string) (domain.PaceConfig, bool) {
	p, ok := profiles[name]
	return p, ok
}

func ProfileNames() []string {
	return []string{"slow", "medium", "fast"}
}

// Pace returns the profile named by DEBATE_PACE (default "medium") with
// per-knob env overrides applied.
func Pace() domain.PaceConfig {
	name := os.Getenv("DEBATE_PACE")
	p, ok := profiles[name]
	if !ok {
		p = profiles["medium"]
	}
	p.MinTurn = envDuration("DEBATE_MIN_TURN", p.MinTurn)
	p.Gap = envDuration("DEBATE_GAP", p.Gap)
	p.JitterBound = envDuration("DEBATE_JITTER", p.JitterBound)
	p.RevealRate = envFloat("DEBATE_REVEAL_RATE", p.RevealRate)
	p.MaxRounds = envInt("DEBATE_MAX_ROUNDS", p.MaxRounds)
	return p
}

// AgentMaxTokens caps each agent reply. Zero keeps the provider default.
func AgentMaxTokens() int {
	return envInt("AGENT_MAX_TOKENS", 0)
}

// AgentCallTimeout bounds a single agent call.
// Defaults to 60s if not set.
func AgentCallTimeout() time.Duration {
	return envDuration("AGENT_CALL_TIMEOUT", 60*time.Second)
}

// DebateTimeout bounds a whole debate. Zero derives a deadline from the
// pace settings.
func DebateTimeout() time.Duration {
	return envDuration("DEBATE_TIMEOUT", 0)
}

// RetryMaxAttempts returns attempts per agent turn.
// Defaults to 3 if not set.
func RetryMaxAttempts() int {
	n := envInt("RETRY_MAX_ATTEMPTS", 3)
	if n < 1 {
		return 3
	}
	return n
}

func RetryBaseDelay() time.Duration {
	return envDuration("RETRY_BASE_DELAY", time.Second)
}

func RetryMultiplier() float64 {
	m := envFloat("RETRY_MULTIPLIER", 2)
	if m < 1 {
		return 2
	}
	return m
}

func RetryMaxDelay() time.Duration {
	return envDuration("RETRY_MAX_DELAY", 10*time.Second)
}

// TelemetryPath is the JSONL event log destination. Empty disables the
// file sink.
func TelemetryPath() string {
	return os.Getenv("TELEMETRY_PATH")
}

// DebateRetention is how long finished debates stay in memory for
// snapshots and watchers. Defaults to 30m if not set.
func DebateRetention() time.Duration {
	return envDuration("DEBATE_RETENTION", 30*time.Minute)
}

// MaxConcurrentDebates caps debates running at once.
// Defaults to 32 if not set.
func MaxConcurrentDebates() int {
	n := envInt("MAX_CONCURRENT_DEBATES", 32)
	if n < 1 {
		return 32
	}
	return n
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
