// Пакет openapi — контракт REST API портала: встроенный OpenAPI-документ,
// интерфейс сервера с маршрутизацией chi и валидация запросов по документу.
package openapi

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
)

//go:embed openapi.yaml
var specYAML []byte

// Spec возвращает исходный текст документа.
func Spec() []byte {
	return specYAML
}

// Load разбирает и проверяет встроенный документ.
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("разбор OpenAPI-документа: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("проверка OpenAPI-документа: %w", err)
	}
	return doc, nil
}

// Validator проверяет запросы по OpenAPI-документу.
// Должен выполняться после маршрутизации chi: шаблон пути берётся
// из chi.RouteContext.
type Validator struct {
	doc     *openapi3.T
	options *openapi3filter.Options
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

// NewValidator создаёт валидатор. onError вызывается при несоответствии запроса.
// Аутентификация здесь не проверяется, её выполняет JWT middleware.
func NewValidator(doc *openapi3.T, onError func(w http.ResponseWriter, r *http.Request, err error)) *Validator {
	return &Validator{
		doc: doc,
		options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
		onError: onError,
	}
}

// Middleware возвращает middleware валидации запроса.
// Запросы к путям, которых нет в документе, пропускаются без проверки.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, ok := v.findRoute(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options:    v.options,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			v.onError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (v *Validator) findRoute(r *http.Request) (*routers.Route, map[string]string, bool) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil, nil, false
	}
	pattern := rctx.RoutePattern()
	if pattern == "" {
		return nil, nil, false
	}

	pathItem := v.doc.Paths.Find(pattern)
	if pathItem == nil {
		return nil, nil, false
	}
	op := pathItem.GetOperation(r.Method)
	if op == nil {
		return nil, nil, false
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}

	return &routers.Route{
		Spec:      v.doc,
		Path:      pattern,
		PathItem:  pathItem,
		Method:    r.Method,
		Operation: op,
	}, params, true
}

// ValidationMessage превращает ошибку валидации в короткое сообщение для клиента.
func ValidationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.Parameter != nil:
			return fmt.Sprintf("некорректный параметр %q: %s", reqErr.Parameter.Name, firstLine(reqErr.Err))
		case reqErr.RequestBody != nil:
			return "некорректное тело запроса: " + firstLine(reqErr.Err)
		}
		return reqErr.Reason
	}
	return firstLine(err)
}

func firstLine(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
