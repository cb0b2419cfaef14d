// Пакет server — HTTP-сервер портала с graceful shutdown.
// Без TLS: HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/ecoportal/internal/api/handlers"
	"github.com/bigkaa/ecoportal/internal/api/middleware"
	"github.com/bigkaa/ecoportal/internal/api/openapi"
	"github.com/bigkaa/ecoportal/internal/config"
	"github.com/bigkaa/ecoportal/internal/telemetry"
	uihandlers "github.com/bigkaa/ecoportal/internal/ui/handlers"
	"github.com/bigkaa/ecoportal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/ecoportal/internal/ui/middleware"
	"github.com/bigkaa/ecoportal/internal/ui/static"
)

// Публичные GET-маршруты API: каталог индикаторов открыт без входа.
var publicGETRoutes = []string{
	"/api/v1/kpis",
	"/api/v1/kpis/dimensions",
}

// UIComponents — компоненты веб-интерфейса (nil, если UI отключён).
type UIComponents struct {
	AuthMiddleware *uimiddleware.UIAuth
	SessionHandler *uihandlers.SessionHandler
	KPIHandler     *uihandlers.KPIPageHandler
	AdminHandler   *uihandlers.AdminHandler
}

// Server — HTTP-сервер портала.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
// validator — проверка запросов по OpenAPI (может быть nil).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler openapi.ServerInterface,
	jwtAuth *middleware.JWTAuth,
	validator *openapi.Validator,
	ui *UIComponents,
) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(telemetry.HTTPMiddleware(cfg.OTelServiceName))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Middleware операций API выполняются после маршрутизации:
	// сначала JWT, затем проверка по OpenAPI.
	var apiMiddlewares []openapi.MiddlewareFunc
	if jwtAuth != nil {
		apiMiddlewares = append(apiMiddlewares, jwtAuthWithExclusions(jwtAuth, "/health/", "/metrics"))
	}
	if validator != nil {
		apiMiddlewares = append(apiMiddlewares, validator.Middleware)
	}

	openapi.HandlerWithOptions(handler, openapi.ChiServerOptions{
		BaseRouter:       router,
		Middlewares:      apiMiddlewares,
		ErrorHandlerFunc: handlers.RequestErrorHandler,
	})

	if ui != nil {
		mountUI(router, ui)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Handler возвращает корневой обработчик (для тестов).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// mountUI регистрирует страницы, HTMX-партиалы и статику.
func mountUI(router chi.Router, ui *UIComponents) {
	router.Handle("/static/*", http.StripPrefix("/static", http.FileServer(static.FileSystem())))

	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware())
		r.Use(ui.AuthMiddleware.Middleware())

		r.Get("/", ui.KPIHandler.HandleKPIs)
		r.Get("/kpis", ui.KPIHandler.HandleKPIs)

		r.Get("/login", ui.SessionHandler.HandleLoginPage)
		r.Post("/session", ui.SessionHandler.HandleCreateSession)
		r.Post("/session/logout", ui.SessionHandler.HandleLogout)
		r.Post("/set-language", uihandlers.HandleSetLanguage)

		r.Get("/admin", ui.AdminHandler.HandleAdmin)
		r.Route("/admin/partials/profiles", func(r chi.Router) {
			r.Get("/", ui.AdminHandler.HandleProfilesPartial)
			r.Post("/{userID}/toggle-active", ui.AdminHandler.HandleToggleActive)
			r.Post("/{userID}/role", ui.AdminHandler.HandleChangeRole)
		})
	})
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская публичные маршруты.
// Запросы к путям, начинающимся с любого из excludePrefixes, и GET-запросы
// каталога индикаторов проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) openapi.MiddlewareFunc {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		protected := jwtMiddleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if r.Method == http.MethodGet && slices.Contains(publicGETRoutes, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			protected.ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
