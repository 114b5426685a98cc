package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/Dosada05/tournament-rounds/standings"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Scoring knobs. Defaults follow the standard 3/1/0 mapping with a bye
	// counted as a win.
	Points standings.PointsPolicy

	// PairingAllowRepeats controls the degraded pairing mode for late Swiss
	// rounds where a repeat-free pairing no longer exists.
	PairingAllowRepeats bool

	// Optional S3-compatible object storage for snapshot export.
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3PublicBaseURL   string
}

// HasObjectStorage reports whether snapshot export can be enabled.
func (c *Config) HasObjectStorage() bool {
	return c.S3Endpoint != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != "" && c.S3BucketName != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	points := standings.DefaultPolicy()
	if points.Win, err = intEnv("POINTS_WIN", points.Win); err != nil {
		return nil, err
	}
	if points.Draw, err = intEnv("POINTS_DRAW", points.Draw); err != nil {
		return nil, err
	}
	if points.Bye, err = intEnv("POINTS_BYE", points.Bye); err != nil {
		return nil, err
	}

	allowRepeats := true
	if raw := os.Getenv("PAIRING_ALLOW_REPEATS"); raw != "" {
		allowRepeats, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PAIRING_ALLOW_REPEATS environment variable: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:         dbURL,
		JWTSecretKey:        jwtKey,
		ServerPort:          port,
		Points:              points,
		PairingAllowRepeats: allowRepeats,
		S3Endpoint:          os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:       os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:   os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3BucketName:        os.Getenv("S3_BUCKET_NAME"),
		S3PublicBaseURL:     os.Getenv("S3_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return value, nil
}
