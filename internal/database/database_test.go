package database

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/ecoportal/internal/config"
)

// setupTestDB запускает PostgreSQL в Docker-контейнере через testcontainers
// и возвращает конфиг, указывающий на него.
func setupTestDB(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("ecoportal_test"),
		postgres.WithUsername("ecoportal"),
		postgres.WithPassword("test-p@ss"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("EP_DB_HOST", host)
	t.Setenv("EP_DB_PORT", port.Port())
	t.Setenv("EP_DB_NAME", "ecoportal_test")
	t.Setenv("EP_DB_USER", "ecoportal")
	t.Setenv("EP_DB_PASSWORD", "test-p@ss")
	t.Setenv("EP_DB_SSL_MODE", "disable")
	t.Setenv("EP_JWT_JWKS_URL", "http://localhost:8080/jwks.json")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// TestConnect проверяет подключение к PostgreSQL через pgxpool.
func TestConnect(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("pool.Ping() вернул ошибку: %v", err)
	}
}

// TestMigrate проверяет применение миграций и ограничения таблицы profiles.
func TestMigrate(t *testing.T) {
	cfg := setupTestDB(t)
	logger := testLogger()

	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}
	// Повторное применение без ошибки (ErrNoChange)
	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Повторный Migrate() вернул ошибку: %v", err)
	}

	ctx := context.Background()
	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	var exists bool
	err = pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'profiles'
		)`).Scan(&exists)
	if err != nil {
		t.Fatalf("Ошибка проверки таблицы profiles: %v", err)
	}
	if !exists {
		t.Fatal("Таблица profiles не создана")
	}

	// Значения по умолчанию
	var role string
	var active bool
	err = pool.QueryRow(ctx,
		`INSERT INTO profiles (user_id) VALUES ('u-1') RETURNING role, active`).Scan(&role, &active)
	if err != nil {
		t.Fatalf("Ошибка вставки профиля: %v", err)
	}
	if role != "user" || active {
		t.Errorf("по умолчанию role=%q active=%v, ожидается user/false", role, active)
	}

	// Один профиль на user_id
	if _, err := pool.Exec(ctx, `INSERT INTO profiles (user_id) VALUES ('u-1')`); err == nil {
		t.Error("повторный user_id должен нарушать UNIQUE")
	}
	// Роль ограничена CHECK
	if _, err := pool.Exec(ctx, `INSERT INTO profiles (user_id, role) VALUES ('u-2', 'root')`); err == nil {
		t.Error("недопустимая роль должна нарушать CHECK")
	}
}

// TestReadinessChecker проверяет ReadinessChecker.
func TestReadinessChecker(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}

	checker := NewReadinessChecker(pool)
	status, msg := checker.CheckReady(ctx)
	if status != "ok" {
		t.Errorf("CheckReady() status = %q, message = %q; ожидали ok", status, msg)
	}

	pool.Close()
	if status, _ := checker.CheckReady(ctx); status != "fail" {
		t.Errorf("CheckReady() после закрытия пула = %q, ожидали fail", status)
	}
}
