package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable the orchestration core reads from the
// environment. Defaults are chosen so the binary runs with nothing but an
// API key set.
type Config struct {
	LLMBackend string // "gemini" or "ollama"
	LLMModel   string
	OllamaHost string

	WorkerRegistryPath string
	DatabasePath       string
	LogPath            string

	ToolTimeout      time.Duration
	PlanTimeout      time.Duration
	MissionRetention time.Duration // persisted missions older than this are purged at startup
	SuccessFraction  float64       // parallel partial-failure policy; 1.0 = all tasks must succeed
	MaxTurns         int           // collaborative loop safety cap
	MaxParallel      int

	ListenAddr string
}

func Load() Config {
	return Config{
		LLMBackend:         getEnv("LLM_BACKEND", "gemini"),
		LLMModel:           getEnv("LLM_MODEL", ""),
		OllamaHost:         getEnv("OLLAMA_HOST", "http://localhost:11434"),
		WorkerRegistryPath: getEnv("WORKER_REGISTRY", "workers.yaml"),
		DatabasePath:       getEnv("MISSION_DB", "missions.db"),
		LogPath:            getEnv("LOG_FILE", "orchestrator.log"),
		ToolTimeout:        getDuration("TOOL_TIMEOUT", 30*time.Second),
		PlanTimeout:        getDuration("PLAN_TIMEOUT", 20*time.Second),
		MissionRetention:   getDuration("MISSION_RETENTION", 30*24*time.Hour),
		SuccessFraction:    getFloat("SUCCESS_FRACTION", 1.0),
		MaxTurns:           getInt("MAX_COLLAB_TURNS", 50),
		MaxParallel:        getInt("MAX_PARALLEL_TASKS", 16),
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil && v > 0 && v <= 1 {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return v
	}
	return def
}
