package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int

	JWTSecret string

	GoEnv       string
	FrontendURL string

	VNPayTmnCode    string
	VNPayHashSecret string
	VNPayURL        string
	VNPayReturnURL  string

	// ReturnWindowHours bounds return/exchange requests after delivery.
	ReturnWindowHours int
}

// Load reads configuration from the environment. Every credential is
// required; only the return window has a default.
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:       os.Getenv("GO_ENV"),
		FrontendURL: os.Getenv("FRONTEND_URL"),

		VNPayTmnCode:    os.Getenv("VNPAY_TMN_CODE"),
		VNPayHashSecret: os.Getenv("VNPAY_HASH_SECRET"),
		VNPayURL:        os.Getenv("VNPAY_URL"),
		VNPayReturnURL:  os.Getenv("VNPAY_RETURN_URL"),

		ReturnWindowHours: 72,
	}

	if v := os.Getenv("RETURN_WINDOW_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("RETURN_WINDOW_HOURS must be a positive number")
		}
		cfg.ReturnWindowHours = hours
	}

	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.FrontendURL == "" {
		return Config{}, fmt.Errorf("FRONTEND_URL is required")
	}
	if cfg.VNPayTmnCode == "" {
		return Config{}, fmt.Errorf("VNPAY_TMN_CODE is required")
	}
	if cfg.VNPayHashSecret == "" {
		return Config{}, fmt.Errorf("VNPAY_HASH_SECRET is required")
	}
	if cfg.VNPayURL == "" {
		return Config{}, fmt.Errorf("VNPAY_URL is required")
	}
	if cfg.VNPayReturnURL == "" {
		return Config{}, fmt.Errorf("VNPAY_RETURN_URL is required")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
