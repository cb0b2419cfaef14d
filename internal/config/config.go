// Пакет config — загрузка и валидация конфигурации портала экосистемы
// из переменных окружения (префикс EP_).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации портала.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL (хранилище профилей) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- JWT (провайдер идентичности) ---

	// URL JWKS endpoint провайдера идентичности
	JWTJWKSURL string
	// Ожидаемый issuer JWT (пусто — не проверяется)
	JWTIssuer string
	// Интервал фонового обновления JWKS
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration

	// --- Источник KPI ---

	// URL CSV-ресурса с KPI (приоритетнее пути)
	KPISourceURL string
	// Путь к CSV-файлу с KPI (пусто — встроенный пример)
	KPISourcePath string
	// Таймаут загрузки CSV по HTTP
	KPIFetchTimeout time.Duration
	// Время жизни разобранного набора KPI в кэше
	KPICacheTTL time.Duration
	// Максимальное количество наборов в кэше
	KPICacheSize int

	// --- UI ---

	// Включён ли серверный UI
	UIEnabled bool
	// Секрет для шифрования cookie сессии (пусто — случайный ключ)
	UISessionSecret string
	// Secure-флаг для cookie
	UISecureCookie bool

	// sub идентичности, которая при старте назначается активным администратором
	BootstrapAdmin string

	// --- Наблюдаемость ---

	// Группа зависимостей в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Имя сервиса в трейсах OpenTelemetry
	OTelServiceName string

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("EP_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("EP_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("EP_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("EP_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("EP_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("EP_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("EP_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("EP_DB_HOST")
	if err != nil {
		return nil, err
	}

	cfg.DBPort, err = getEnvInt("EP_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("EP_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("EP_DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg.DBUser, err = getEnvRequired("EP_DB_USER")
	if err != nil {
		return nil, err
	}

	cfg.DBPassword, err = getEnvRequired("EP_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("EP_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("EP_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- JWT ---

	cfg.JWTJWKSURL, err = getEnvRequired("EP_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}
	if _, err := url.ParseRequestURI(cfg.JWTJWKSURL); err != nil {
		return nil, fmt.Errorf("EP_JWT_JWKS_URL: некорректный URL %q", cfg.JWTJWKSURL)
	}

	cfg.JWTIssuer = getEnvDefault("EP_JWT_ISSUER", "")

	cfg.JWKSRefreshInterval, err = getEnvDuration("EP_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("EP_JWKS_REFRESH_INTERVAL: %w", err)
	}

	cfg.JWTLeeway, err = getEnvDuration("EP_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("EP_JWT_LEEWAY: %w", err)
	}

	// --- Источник KPI ---

	cfg.KPISourceURL = strings.TrimSpace(getEnvDefault("EP_KPI_SOURCE_URL", ""))
	if cfg.KPISourceURL != "" {
		if _, err := url.ParseRequestURI(cfg.KPISourceURL); err != nil {
			return nil, fmt.Errorf("EP_KPI_SOURCE_URL: некорректный URL %q", cfg.KPISourceURL)
		}
	}
	cfg.KPISourcePath = getEnvDefault("EP_KPI_SOURCE_PATH", "")

	cfg.KPIFetchTimeout, err = getEnvDuration("EP_KPI_FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("EP_KPI_FETCH_TIMEOUT: %w", err)
	}

	cfg.KPICacheTTL, err = getEnvDuration("EP_KPI_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("EP_KPI_CACHE_TTL: %w", err)
	}

	cfg.KPICacheSize, err = getEnvInt("EP_KPI_CACHE_SIZE", 8)
	if err != nil {
		return nil, fmt.Errorf("EP_KPI_CACHE_SIZE: %w", err)
	}
	if cfg.KPICacheSize < 1 {
		return nil, fmt.Errorf("EP_KPI_CACHE_SIZE: значение %d должно быть >= 1", cfg.KPICacheSize)
	}

	// --- UI ---

	cfg.UIEnabled, err = getEnvBool("EP_UI_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("EP_UI_ENABLED: %w", err)
	}
	cfg.UISessionSecret = getEnvDefault("EP_UI_SESSION_SECRET", "")
	cfg.UISecureCookie, err = getEnvBool("EP_UI_SECURE_COOKIE", false)
	if err != nil {
		return nil, fmt.Errorf("EP_UI_SECURE_COOKIE: %w", err)
	}

	cfg.BootstrapAdmin = strings.TrimSpace(getEnvDefault("EP_BOOTSTRAP_ADMIN", ""))

	// --- Наблюдаемость ---

	cfg.DephealthGroup = getEnvDefault("EP_DEPHEALTH_GROUP", "ecoportal")
	cfg.DephealthCheckInterval, err = getEnvDuration("EP_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("EP_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.OTelServiceName = getEnvDefault("EP_OTEL_SERVICE_NAME", "ecoportal")

	cfg.ShutdownTimeout, err = getEnvDuration("EP_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("EP_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
