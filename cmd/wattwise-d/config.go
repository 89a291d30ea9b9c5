package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rmax-ai/wattwise/pkg/logging"
	"github.com/rmax-ai/wattwise/pkg/provider/gemini"
)

const (
	defaultAddr        = "127.0.0.1:5000"
	defaultStore       = "memory"
	defaultRedisAddr   = "127.0.0.1:6379"
	defaultMQTTTopic   = "wattwise"
	defaultChatTimeout = gemini.DefaultTimeout
)

type Config struct {
	Addr         string
	Store        string
	DBPath       string
	RedisAddr    string
	RatesPath    string
	GeminiAPIKey string
	GeminiModel  string
	ChatTimeout  time.Duration
	ChatRPS      float64
	MQTTBroker   string
	MQTTTopic    string
	LogLevel     string
	LogFormat    string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	chatTimeout := defaultChatTimeout
	if v := os.Getenv("WATTWISE_CHAT_TIMEOUT"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WATTWISE_CHAT_TIMEOUT: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("WATTWISE_CHAT_TIMEOUT must be positive")
		}
		chatTimeout = parsed
	}
	chatRPS := 0.0
	if v := os.Getenv("WATTWISE_CHAT_RPS"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WATTWISE_CHAT_RPS: %w", err)
		}
		chatRPS = parsed
	}

	flagSet := flag.NewFlagSet("wattwise-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagAddr := flagSet.String("addr", addrFromEnv(defaultAddr), "HTTP listen address")
	flagStore := flagSet.String("store", envOrDefault("WATTWISE_STORE", defaultStore), "ledger store: memory|sqlite|redis")
	flagDB := flagSet.String("db", envOrDefault("WATTWISE_DB_PATH", filepath.Join(cwd, "wattwise.db")), "path to SQLite database when store=sqlite")
	flagRedis := flagSet.String("redis", envOrDefault("WATTWISE_REDIS_ADDR", defaultRedisAddr), "Redis address when store=redis")
	flagRates := flagSet.String("rates", os.Getenv("WATTWISE_RATES_PATH"), "optional YAML rate tables, reloaded on change")
	flagModel := flagSet.String("model", envOrDefault("WATTWISE_GEMINI_MODEL", gemini.DefaultModel), "Gemini model")
	flagChatTimeout := flagSet.String("chat-timeout", chatTimeout.String(), "chat provider timeout")
	flagChatRPS := flagSet.Float64("chat-rps", chatRPS, "chat provider requests per second (0 = unlimited)")
	flagBroker := flagSet.String("mqtt-broker", os.Getenv("WATTWISE_MQTT_BROKER"), "MQTT broker address (empty disables publishing)")
	flagTopic := flagSet.String("mqtt-topic", envOrDefault("WATTWISE_MQTT_TOPIC", defaultMQTTTopic), "MQTT topic prefix")
	flagLogLevel := flagSet.String("log-level", envOrDefault("WATTWISE_LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	flagLogFormat := flagSet.String("log-format", envOrDefault("WATTWISE_LOG_FORMAT", "json"), "log format: json|text")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
		}
		return Config{}, err
	}

	timeoutParsed, err := time.ParseDuration(*flagChatTimeout)
	if err != nil {
		return Config{}, fmt.Errorf("invalid chat timeout: %w", err)
	}

	config := Config{
		Addr:         strings.TrimSpace(*flagAddr),
		Store:        strings.ToLower(strings.TrimSpace(*flagStore)),
		DBPath:       resolvePath(*flagDB, cwd),
		RedisAddr:    strings.TrimSpace(*flagRedis),
		RatesPath:    resolvePath(*flagRates, cwd),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  strings.TrimSpace(*flagModel),
		ChatTimeout:  timeoutParsed,
		ChatRPS:      *flagChatRPS,
		MQTTBroker:   strings.TrimSpace(*flagBroker),
		MQTTTopic:    strings.TrimSpace(*flagTopic),
		LogLevel:     *flagLogLevel,
		LogFormat:    strings.ToLower(strings.TrimSpace(*flagLogFormat)),
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}
	switch config.Store {
	case "memory":
	case "sqlite":
		if config.DBPath == "" {
			return Config{}, errors.New("store=sqlite requires db")
		}
	case "redis":
		if config.RedisAddr == "" {
			return Config{}, errors.New("store=redis requires redis")
		}
	default:
		return Config{}, fmt.Errorf("unsupported store: %s", config.Store)
	}
	if config.ChatTimeout <= 0 {
		return Config{}, errors.New("chat timeout must be positive")
	}
	if config.ChatRPS < 0 {
		return Config{}, errors.New("chat rps cannot be negative")
	}
	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return Config{}, err
	}
	if config.LogFormat != "json" && config.LogFormat != "text" {
		return Config{}, fmt.Errorf("unsupported log format: %s", config.LogFormat)
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("WATTWISE_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("WATTWISE_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
