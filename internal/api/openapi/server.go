package openapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface — операции REST API.
type ServerInterface interface {
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/kpis)
	ListKPIs(w http.ResponseWriter, r *http.Request, params ListKPIsParams)
	// (GET /api/v1/kpis/dimensions)
	ListDimensions(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/kpis/reload)
	ReloadKPIs(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/access)
	GetAccess(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/profile)
	GetMyProfile(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/profile)
	RegisterProfile(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/admin/profiles)
	ListProfiles(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/admin/profiles/{userID}/toggle-active)
	ToggleProfileActive(w http.ResponseWriter, r *http.Request, userID string)
	// (PUT /api/v1/admin/profiles/{userID}/role)
	ChangeProfileRole(w http.ResponseWriter, r *http.Request, userID string)
}

// MiddlewareFunc — middleware отдельного обработчика.
// Выполняется после маршрутизации, шаблон пути уже известен.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper разбирает параметры запроса и вызывает ServerInterface.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// ParamError — ошибка разбора параметра запроса.
type ParamError struct {
	ParamName string
	Err       error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("некорректный параметр %q: %v", e.ParamName, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// wrap применяет middleware так, что первый в списке выполняется первым.
func (siw *ServerInterfaceWrapper) wrap(h http.Handler) http.Handler {
	for i := len(siw.HandlerMiddlewares) - 1; i >= 0; i-- {
		h = siw.HandlerMiddlewares[i](h)
	}
	return h
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn func(w http.ResponseWriter, r *http.Request)) {
	siw.wrap(http.HandlerFunc(fn)).ServeHTTP(w, r)
}

// HealthLive — обёртка операции.
func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthLive)
}

// HealthReady — обёртка операции.
func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthReady)
}

// GetMetrics — обёртка операции.
func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetMetrics)
}

// ListKPIs разбирает query-параметр dimension.
func (siw *ServerInterfaceWrapper) ListKPIs(w http.ResponseWriter, r *http.Request) {
	var params ListKPIsParams

	err := runtime.BindQueryParameter("form", true, false, "dimension", r.URL.Query(), &params.Dimension)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &ParamError{ParamName: "dimension", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListKPIs(w, r, params)
	})
}

// ListDimensions — обёртка операции.
func (siw *ServerInterfaceWrapper) ListDimensions(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ListDimensions)
}

// ReloadKPIs — обёртка операции.
func (siw *ServerInterfaceWrapper) ReloadKPIs(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ReloadKPIs)
}

// GetAccess — обёртка операции.
func (siw *ServerInterfaceWrapper) GetAccess(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetAccess)
}

// GetMyProfile — обёртка операции.
func (siw *ServerInterfaceWrapper) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetMyProfile)
}

// RegisterProfile — обёртка операции.
func (siw *ServerInterfaceWrapper) RegisterProfile(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.RegisterProfile)
}

// ListProfiles — обёртка операции.
func (siw *ServerInterfaceWrapper) ListProfiles(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ListProfiles)
}

// ToggleProfileActive разбирает path-параметр userID.
func (siw *ServerInterfaceWrapper) ToggleProfileActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := siw.bindUserID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ToggleProfileActive(w, r, userID)
	})
}

// ChangeProfileRole разбирает path-параметр userID.
func (siw *ServerInterfaceWrapper) ChangeProfileRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := siw.bindUserID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ChangeProfileRole(w, r, userID)
	})
}

func (siw *ServerInterfaceWrapper) bindUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var userID string
	err := runtime.BindStyledParameterWithOptions("simple", "userID", chi.URLParam(r, "userID"), &userID,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &ParamError{ParamName: "userID", Err: err})
		return "", false
	}
	return userID, true
}

// ChiServerOptions — параметры регистрации маршрутов.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux регистрирует все операции на router.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{BaseRouter: r})
}

// HandlerWithOptions регистрирует все операции с заданными параметрами.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}
	base := options.BaseURL

	r.Get(base+"/health/live", wrapper.HealthLive)
	r.Get(base+"/health/ready", wrapper.HealthReady)
	r.Get(base+"/metrics", wrapper.GetMetrics)
	r.Get(base+"/api/v1/kpis", wrapper.ListKPIs)
	r.Get(base+"/api/v1/kpis/dimensions", wrapper.ListDimensions)
	r.Post(base+"/api/v1/kpis/reload", wrapper.ReloadKPIs)
	r.Get(base+"/api/v1/access", wrapper.GetAccess)
	r.Get(base+"/api/v1/profile", wrapper.GetMyProfile)
	r.Post(base+"/api/v1/profile", wrapper.RegisterProfile)
	r.Get(base+"/api/v1/admin/profiles", wrapper.ListProfiles)
	r.Post(base+"/api/v1/admin/profiles/{userID}/toggle-active", wrapper.ToggleProfileActive)
	r.Put(base+"/api/v1/admin/profiles/{userID}/role", wrapper.ChangeProfileRole)

	return r
}
