// Package config reads service settings from the environment and an
// optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/muhammadolammi/jobrecommender/internal/errs"
)

const (
	BackendGenAI = "genai"
	BackendAgent = "agent"
)

type LLM struct {
	Backend     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int32
}

type Apify struct {
	Token   string
	ActorID string
	BaseURL string
}

type Jobs struct {
	Location   string
	Rows       int
	MaxQueries int
	Parallel   bool
}

type R2 struct {
	AccountID string
	Bucket    string
	AccessKey string
	SecretKey string
}

type Worker struct {
	DBURL       string
	RabbitMQURL string
	Count       int
	R2          R2
}

type Config struct {
	LLM       LLM
	Apify     Apify
	Jobs      Jobs
	Worker    Worker
	Port      string
	LogLevel  string
	LogFormat string
}

// Load reads .env when present, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	return Config{
		LLM: LLM{
			Backend:     strings.ToLower(getEnv("LLM_BACKEND", BackendGenAI)),
			APIKey:      apiKey,
			Model:       getEnv("LLM_MODEL", "gemini-2.5-flash"),
			Temperature: float32(getEnvFloat("LLM_TEMPERATURE", 0.5)),
			MaxTokens:   int32(getEnvInt("LLM_MAX_TOKENS", 1024)),
		},
		Apify: Apify{
			Token:   os.Getenv("APIFY_API_TOKEN"),
			ActorID: os.Getenv("APIFY_LINKEDIN_ACTOR_ID"),
			BaseURL: os.Getenv("APIFY_BASE_URL"),
		},
		Jobs: Jobs{
			Location:   getEnv("JOB_LOCATION", "India"),
			Rows:       getEnvInt("JOB_ROWS", 60),
			MaxQueries: getEnvInt("JOB_MAX_QUERIES", 3),
			Parallel:   getEnvBool("JOB_FETCH_PARALLEL", false),
		},
		Worker: Worker{
			DBURL:       os.Getenv("DB_URL"),
			RabbitMQURL: os.Getenv("RABBITMQ_URL"),
			Count:       getEnvInt("WORKER_COUNT", 3),
			R2: R2{
				AccountID: os.Getenv("R2_ACCOUNT_ID"),
				Bucket:    os.Getenv("R2_BUCKET"),
				AccessKey: os.Getenv("R2_ACCESS_KEY"),
				SecretKey: os.Getenv("R2_SECRET_KEY"),
			},
		},
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// RequireLLM checks the settings every command needs.
func (c Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return errs.Configuration("GOOGLE_API_KEY")
	}
	switch c.LLM.Backend {
	case BackendGenAI, BackendAgent:
		return nil
	default:
		return errs.Configuration("LLM_BACKEND (genai|agent)")
	}
}

// RequireWorker checks the queue, database and object storage settings.
func (c Config) RequireWorker() error {
	required := []struct{ key, value string }{
		{"DB_URL", c.Worker.DBURL},
		{"RABBITMQ_URL", c.Worker.RabbitMQURL},
		{"R2_ACCOUNT_ID", c.Worker.R2.AccountID},
		{"R2_BUCKET", c.Worker.R2.Bucket},
		{"R2_ACCESS_KEY", c.Worker.R2.AccessKey},
		{"R2_SECRET_KEY", c.Worker.R2.SecretKey},
	}
	for _, r := range required {
		if r.value == "" {
			return errs.Configuration(r.key)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 32)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
