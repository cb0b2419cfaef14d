// Точка входа портала экосистемы.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт источник и кэш KPI, сервис профилей и API handlers,
// запускает topologymetrics, UI и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/ecoportal/internal/api/handlers"
	"github.com/bigkaa/ecoportal/internal/api/middleware"
	"github.com/bigkaa/ecoportal/internal/api/openapi"
	"github.com/bigkaa/ecoportal/internal/config"
	"github.com/bigkaa/ecoportal/internal/database"
	"github.com/bigkaa/ecoportal/internal/kpisource"
	"github.com/bigkaa/ecoportal/internal/repository"
	"github.com/bigkaa/ecoportal/internal/server"
	"github.com/bigkaa/ecoportal/internal/service"
	"github.com/bigkaa/ecoportal/internal/telemetry"
	"github.com/bigkaa/ecoportal/internal/ui/auth"
	uihandlers "github.com/bigkaa/ecoportal/internal/ui/handlers"
	"github.com/bigkaa/ecoportal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/ecoportal/internal/ui/middleware"
)

// jwksFetchTimeout — таймаут загрузки JWKS и проверки готовности провайдера.
const jwksFetchTimeout = 10 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Портал запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("EP_DEPHEALTH_GROUP") == "" {
		logger.Warn("EP_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Трассировка OpenTelemetry
	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx, cfg.OTelServiceName, logger)
	if err != nil {
		logger.Error("Ошибка инициализации трассировки", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Ошибка остановки трассировки", slog.String("error", err.Error()))
		}
	}()

	// 4. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 6. HTTP-клиенты с трассировкой (JWKS и ресурс KPI)
	jwksClient := telemetry.InstrumentClient(&http.Client{Timeout: jwksFetchTimeout})
	kpiClient := telemetry.InstrumentClient(&http.Client{Timeout: cfg.KPIFetchTimeout})

	// 7. Repositories и services
	profileRepo := repository.NewProfileRepository(pool)
	profileSvc := service.NewProfileService(profileRepo, logger)

	kpiSource := kpisource.New(cfg.KPISourceURL, cfg.KPISourcePath, kpiClient)
	kpiSvc := service.NewKPIService(kpiSource, cfg.KPICacheSize, cfg.KPICacheTTL, logger)
	logger.Info("Источник KPI", slog.String("source", kpiSvc.SourceName()))

	// 8. Начальный администратор
	if cfg.BootstrapAdmin != "" {
		if err := profileSvc.BootstrapAdmin(ctx, cfg.BootstrapAdmin); err != nil {
			logger.Warn("Начальный администратор не назначен",
				slog.String("user_id", cfg.BootstrapAdmin),
				slog.String("error", err.Error()),
			)
		}
	}

	// 9. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		jwksClient,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 10. Проверка запросов по OpenAPI
	doc, err := openapi.Load()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI-документа", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator := openapi.NewValidator(doc, handlers.RequestErrorHandler)

	// 11. Readiness checkers (PostgreSQL + провайдер идентичности)
	pgChecker := database.NewReadinessChecker(pool)
	idChecker := middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, jwksClient)
	healthHandler := handlers.NewHealthHandler(pgChecker, idChecker)

	// 12. API handler (реализует openapi.ServerInterface)
	apiHandler := handlers.NewAPIHandler(healthHandler, kpiSvc, profileSvc, logger)

	// 13. topologymetrics — мониторинг зависимостей (PostgreSQL, JWKS, ресурс KPI)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "ecoportal",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PostgresURL:   cfg.DatabaseURL(),
		JWKSURL:       cfg.JWTJWKSURL,
		KPISourceURL:  cfg.KPISourceURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 14. UI (опционально, если EP_UI_ENABLED=true)
	var uiComponents *server.UIComponents
	if cfg.UIEnabled {
		bundle := i18n.Init(logger)
		if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
			logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
			os.Exit(1)
		}

		sessionMgr, sessionErr := auth.NewSessionManager(cfg.UISessionSecret, cfg.UISecureCookie)
		if sessionErr != nil {
			logger.Error("Ошибка создания менеджера сессий", slog.String("error", sessionErr.Error()))
			os.Exit(1)
		}
		if cfg.UISessionSecret == "" {
			logger.Warn("EP_UI_SESSION_SECRET не задан, UI-сессии не сохраняются между рестартами")
		}

		uiComponents = &server.UIComponents{
			AuthMiddleware: uimiddleware.NewUIAuth(sessionMgr, jwtAuth, logger),
			SessionHandler: uihandlers.NewSessionHandler(sessionMgr, jwtAuth, profileSvc, logger),
			KPIHandler:     uihandlers.NewKPIPageHandler(kpiSvc, profileSvc, logger),
			AdminHandler:   uihandlers.NewAdminHandler(profileSvc, logger),
		}

		logger.Info("UI инициализирован", slog.Bool("secure_cookie", cfg.UISecureCookie))
	} else {
		logger.Info("UI отключён (EP_UI_ENABLED=false)")
	}

	// 15. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, validator, uiComponents)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Портал остановлен")
}
