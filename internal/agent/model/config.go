package model

import "time"

// ================ Config ================
type SessionConfig struct {
	// Backend is sqlite, redis or memory. Only sqlite and redis keep
	// sessions between CLI invocations.
	Backend string        `envconfig:"SESSION_BACKEND" default:"sqlite"`
	DBPath  string        `envconfig:"SESSION_DB_PATH" default:"./data/sessions.db"`
	TTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	MaxAge  time.Duration `envconfig:"SESSION_MAX_AGE" default:"168h"`
}

type EngineConfig struct {
	MaxUtteranceBytes int `envconfig:"ENGINE_MAX_UTTERANCE_BYTES" default:"4096"`
	MaxRunSteps       int `envconfig:"ENGINE_MAX_RUN_STEPS" default:"10"`
}

type ProductsConfig struct {
	TopK int `envconfig:"PRODUCTS_TOP_K" default:"5"`
}

type CalculatorConfig struct {
	Provider    string        `envconfig:"CALC_PROVIDER" default:"none"`
	ProviderURL string        `envconfig:"CALC_PROVIDER_URL" default:"https://api.mathjs.org/v4/"`
	Timeout     time.Duration `envconfig:"CALC_PROVIDER_TIMEOUT" default:"5s"`
}

type GeminiConfig struct {
	APIKey      string  `envconfig:"GEMINI_API_KEY"`
	BaseURL     string  `envconfig:"GEMINI_BASE_URL"`
	Model       string  `envconfig:"CALC_GEMINI_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CALC_GEMINI_MAX_TOKENS" default:"64"`
	Temperature float32 `envconfig:"CALC_GEMINI_TEMPERATURE" default:"0"`
}

type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR"`
}
