package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/ecoportal/internal/api/errors"
	"github.com/bigkaa/ecoportal/internal/api/middleware"
	"github.com/bigkaa/ecoportal/internal/api/openapi"
	"github.com/bigkaa/ecoportal/internal/domain/access"
	"github.com/bigkaa/ecoportal/internal/domain/model"
	"github.com/bigkaa/ecoportal/internal/kpisource"
	"github.com/bigkaa/ecoportal/internal/repository"
	"github.com/bigkaa/ecoportal/internal/service"
)

// memRepo — in-memory реализация repository.ProfileRepository.
type memRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	readErr  error
	writeErr error
}

func newMemRepo(profiles ...*model.Profile) *memRepo {
	r := &memRepo{profiles: make(map[string]*model.Profile)}
	for _, p := range profiles {
		r.profiles[p.UserID] = p
	}
	return r
}

func (r *memRepo) List(context.Context) ([]*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	out := make([]*model.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) GetByUserID(_ context.Context, userID string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) GetRole(ctx context.Context, userID string) (string, error) {
	p, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

func (r *memRepo) Create(_ context.Context, p *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UserID]; ok {
		return repository.ErrConflict
	}
	p.ID = "6f1d2a3b-0000-4000-8000-000000000001"
	p.CreatedAt = time.Now()
	cp := *p
	r.profiles[p.UserID] = &cp
	return nil
}

func (r *memRepo) update(userID string, fn func(p *model.Profile)) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return nil, r.writeErr
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	fn(p)
	cp := *p
	return &cp, nil
}

func (r *memRepo) SetActive(_ context.Context, userID string, active bool) (*model.Profile, error) {
	return r.update(userID, func(p *model.Profile) { p.Active = active })
}

func (r *memRepo) SetRole(_ context.Context, userID string, role string) (*model.Profile, error) {
	return r.update(userID, func(p *model.Profile) { p.Role = role })
}

func (r *memRepo) EnsureAdmin(_ context.Context, userID string) (*model.Profile, error) {
	return r.update(userID, func(p *model.Profile) { p.Role = model.RoleAdmin; p.Active = true })
}

const testCSV = "Dimensión;Subdimensión;Indicador;Estado;Código;Descripción;Fórmula;Datos;Fuente;Importancia;Frecuencia;Detalle;Bibliografía\n" +
	"Tecnológica;Infraestructura;Cobertura 5G;ok;T1;d;f;x;s;Alta;Anual;det;bib\n" +
	"Gobernanza;Transparencia;Portal abierto;en curso;G1;d;f;x;s;Media;Mensual;det;bib\n" +
	"corta;fila\n" +
	"Tecnológica;Talento;Startups;ok;T2;d;f;x;s;Baja;Anual;det;bib\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func profile(userID, role string, active bool) *model.Profile {
	return &model.Profile{
		ID:        "0b7f5c1e-1111-4222-8333-444455556666",
		UserID:    userID,
		Role:      role,
		Active:    active,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// testIdentity — подставляет идентичность из заголовка X-Test-Sub вместо JWT.
func testIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sub := r.Header.Get("X-Test-Sub"); sub != "" {
			r = r.WithContext(middleware.WithIdentity(r.Context(), &access.Identity{
				Subject: sub,
				Email:   sub + "@example.org",
			}))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestRouter(t *testing.T, repo repository.ProfileRepository) http.Handler {
	t.Helper()
	src := kpisource.NewFileSource(fstest.MapFS{"kpis.csv": {Data: []byte(testCSV)}}, "kpis.csv")
	kpis := service.NewKPIService(src, 2, time.Minute, discardLogger())
	profiles := service.NewProfileService(repo, discardLogger())
	h := NewAPIHandler(NewHealthHandler(nil, nil), kpis, profiles, discardLogger())

	return openapi.HandlerWithOptions(h, openapi.ChiServerOptions{
		BaseRouter:       chi.NewRouter(),
		Middlewares:      []openapi.MiddlewareFunc{testIdentity},
		ErrorHandlerFunc: RequestErrorHandler,
	})
}

func do(t *testing.T, router http.Handler, method, path, sub, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sub != "" {
		req.Header.Set("X-Test-Sub", sub)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("тело ответа не JSON: %v", err)
	}
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) openapi.ErrorDetail {
	t.Helper()
	return decodeBody[openapi.Error](t, rr).Error
}

// --- KPI ---

func TestListKPIs(t *testing.T) {
	router := newTestRouter(t, newMemRepo())

	rr := do(t, router, http.MethodGet, "/api/v1/kpis", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("статус = %d", rr.Code)
	}
	list := decodeBody[openapi.KPIList](t, rr)
	if list.Total != 3 || len(list.Items) != 3 {
		t.Fatalf("записей = %d, ожидается 3", list.Total)
	}
	if list.Items[0].Indicator != "Cobertura 5G" || list.Items[0].ImportanceTier != "high" || list.Items[0].StatusTier != "positive" {
		t.Errorf("первая запись = %+v", list.Items[0])
	}
	if list.Items[1].StatusTier != "neutral" || list.Items[1].ImportanceTier != "medium" {
		t.Errorf("вторая запись = %+v", list.Items[1])
	}
	if list.Source != "file:kpis.csv" {
		t.Errorf("source = %q", list.Source)
	}
}

func TestListKPIs_ByDimension(t *testing.T) {
	router := newTestRouter(t, newMemRepo())

	rr := do(t, router, http.MethodGet, "/api/v1/kpis?dimension=Tecnol%C3%B3gica", "", "")
	list := decodeBody[openapi.KPIList](t, rr)
	if list.Total != 2 {
		t.Fatalf("записей = %d, ожидается 2", list.Total)
	}
	if list.Dimension == nil || *list.Dimension != "Tecnológica" {
		t.Errorf("dimension = %v", list.Dimension)
	}
	if list.Items[0].Indicator != "Cobertura 5G" || list.Items[1].Indicator != "Startups" {
		t.Errorf("порядок записей нарушен: %+v", list.Items)
	}

	rr = do(t, router, http.MethodGet, "/api/v1/kpis?dimension=Desconocida", "", "")
	if list := decodeBody[openapi.KPIList](t, rr); list.Total != 0 || list.Items == nil {
		t.Errorf("неизвестное измерение: total=%d items=%v", list.Total, list.Items)
	}
}

func TestListDimensions(t *testing.T) {
	router := newTestRouter(t, newMemRepo())

	rr := do(t, router, http.MethodGet, "/api/v1/kpis/dimensions", "", "")
	dims := decodeBody[openapi.DimensionList](t, rr).Items
	want := []openapi.Dimension{{Name: "Tecnológica", Count: 2}, {Name: "Gobernanza", Count: 1}}
	if len(dims) != len(want) {
		t.Fatalf("измерений = %d, ожидается %d", len(dims), len(want))
	}
	for i := range want {
		if dims[i] != want[i] {
			t.Errorf("измерение %d = %+v, ожидается %+v", i, dims[i], want[i])
		}
	}
}

func TestReloadKPIs(t *testing.T) {
	repo := newMemRepo(profile("admin-1", model.RoleAdmin, true), profile("user-1", model.RoleUser, true))
	router := newTestRouter(t, repo)

	rr := do(t, router, http.MethodPost, "/api/v1/kpis/reload", "admin-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("статус = %d (%s)", rr.Code, rr.Body.String())
	}
	res := decodeBody[openapi.ReloadResult](t, rr)
	if res.Records != 3 || res.Dimensions != 2 || res.Dropped != 1 {
		t.Errorf("результат = %+v", res)
	}

	if rr := do(t, router, http.MethodPost, "/api/v1/kpis/reload", "user-1", ""); rr.Code != http.StatusForbidden {
		t.Errorf("user: статус = %d, ожидается 403", rr.Code)
	}
	if rr := do(t, router, http.MethodPost, "/api/v1/kpis/reload", "", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("без идентичности: статус = %d, ожидается 401", rr.Code)
	}
}

// --- Доступ ---

func TestGetAccess(t *testing.T) {
	storeDown := newMemRepo()
	storeDown.readErr = errors.New("connection refused")

	tests := []struct {
		name string
		repo *memRepo
		sub  string
		want access.Decision
	}{
		{"активный админ", newMemRepo(profile("a", model.RoleAdmin, true)), "a", access.Authorized},
		{"неактивный админ", newMemRepo(profile("a", model.RoleAdmin, false)), "a", access.Unauthorized},
		{"активный user", newMemRepo(profile("a", model.RoleUser, true)), "a", access.Unauthorized},
		{"нет профиля", newMemRepo(), "a", access.Unauthorized},
		{"хранилище недоступно", storeDown, "a", access.Pending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestRouter(t, tt.repo), http.MethodGet, "/api/v1/access", tt.sub, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("статус = %d", rr.Code)
			}
			res := decodeBody[openapi.AccessResult](t, rr)
			if res.Decision != string(tt.want) {
				t.Errorf("decision = %q, ожидается %q", res.Decision, tt.want)
			}
			if res.Subject != tt.sub {
				t.Errorf("subject = %q", res.Subject)
			}
		})
	}

	t.Run("без идентичности", func(t *testing.T) {
		rr := do(t, newTestRouter(t, newMemRepo()), http.MethodGet, "/api/v1/access", "", "")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("статус = %d, ожидается 401", rr.Code)
		}
	})
}

// --- Собственный профиль ---

func TestRegisterAndGetProfile(t *testing.T) {
	repo := newMemRepo()
	router := newTestRouter(t, repo)

	if rr := do(t, router, http.MethodGet, "/api/v1/profile", "new-1", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("до регистрации: статус = %d, ожидается 404", rr.Code)
	}

	rr := do(t, router, http.MethodPost, "/api/v1/profile", "new-1",
		`{"firstName":"Lucía","lastName":"Ramos","organization":"Ayuntamiento"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("регистрация: статус = %d (%s)", rr.Code, rr.Body.String())
	}
	p := decodeBody[openapi.Profile](t, rr)
	if p.Role != model.RoleUser || p.Active {
		t.Errorf("новый профиль: role=%q active=%v", p.Role, p.Active)
	}
	if p.FullName == nil || *p.FullName != "Lucía Ramos" {
		t.Errorf("fullName = %v", p.FullName)
	}
	if p.Self == nil || !*p.Self {
		t.Error("собственный профиль должен быть помечен self")
	}

	if rr := do(t, router, http.MethodPost, "/api/v1/profile", "new-1", `{}`); rr.Code != http.StatusConflict {
		t.Errorf("повторная регистрация: статус = %d, ожидается 409", rr.Code)
	}
	if rr := do(t, router, http.MethodGet, "/api/v1/profile", "new-1", ""); rr.Code != http.StatusOK {
		t.Errorf("после регистрации: статус = %d", rr.Code)
	}
	if rr := do(t, router, http.MethodPost, "/api/v1/profile", "new-2", `{"role":"admin"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("лишнее поле role: статус = %d, ожидается 400", rr.Code)
	}
}

// --- Администрирование ---

func TestListProfiles(t *testing.T) {
	repo := newMemRepo(
		profile("admin-1", model.RoleAdmin, true),
		profile("user-1", model.RoleUser, true),
		profile("user-2", model.RoleUser, false),
	)
	router := newTestRouter(t, repo)

	rr := do(t, router, http.MethodGet, "/api/v1/admin/profiles", "admin-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("статус = %d", rr.Code)
	}
	list := decodeBody[openapi.ProfileList](t, rr)
	if len(list.Items) != 3 {
		t.Fatalf("профилей = %d", len(list.Items))
	}
	want := openapi.ProfileStats{Total: 3, Active: 2, Pending: 1, Admins: 1}
	if list.Stats != want {
		t.Errorf("stats = %+v, ожидается %+v", list.Stats, want)
	}
	for _, p := range list.Items {
		self := p.Self != nil && *p.Self
		if self != (p.UserId == "admin-1") {
			t.Errorf("self для %s = %v", p.UserId, self)
		}
	}
}

func TestAdminEndpoints_AccessDecision(t *testing.T) {
	storeDown := newMemRepo()
	storeDown.readErr = errors.New("timeout")

	tests := []struct {
		name     string
		repo     *memRepo
		sub      string
		wantCode int
		wantErr  string
	}{
		{"без идентичности", newMemRepo(), "", http.StatusUnauthorized, apierrors.CodeUnauthorized},
		{"user", newMemRepo(profile("u", model.RoleUser, true)), "u", http.StatusForbidden, apierrors.CodeForbidden},
		{"неактивный админ", newMemRepo(profile("u", model.RoleAdmin, false)), "u", http.StatusForbidden, apierrors.CodeForbidden},
		{"нет профиля", newMemRepo(), "u", http.StatusForbidden, apierrors.CodeForbidden},
		{"профиль не загружен", storeDown, "u", http.StatusServiceUnavailable, apierrors.CodeAccessPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.repo)
			for _, call := range []struct{ method, path, body string }{
				{http.MethodGet, "/api/v1/admin/profiles", ""},
				{http.MethodPost, "/api/v1/admin/profiles/x/toggle-active", `{"active":true}`},
				{http.MethodPut, "/api/v1/admin/profiles/x/role", `{"role":"admin"}`},
			} {
				rr := do(t, router, call.method, call.path, tt.sub, call.body)
				if rr.Code != tt.wantCode {
					t.Errorf("%s %s: статус = %d, ожидается %d", call.method, call.path, rr.Code, tt.wantCode)
					continue
				}
				if got := errorCode(t, rr).Code; got != tt.wantErr {
					t.Errorf("%s %s: код = %q, ожидается %q", call.method, call.path, got, tt.wantErr)
				}
				if tt.wantCode == http.StatusServiceUnavailable && rr.Header().Get("Retry-After") == "" {
					t.Error("нет Retry-After для pending")
				}
			}
		})
	}
}

func TestToggleProfileActive(t *testing.T) {
	repo := newMemRepo(profile("admin-1", model.RoleAdmin, true), profile("user-1", model.RoleUser, false))
	router := newTestRouter(t, repo)

	rr := do(t, router, http.MethodPost, "/api/v1/admin/profiles/user-1/toggle-active", "admin-1", `{"active":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("статус = %d (%s)", rr.Code, rr.Body.String())
	}
	if p := decodeBody[openapi.Profile](t, rr); !p.Active {
		t.Error("ожидается active=true после переключения")
	}

	rr = do(t, router, http.MethodPost, "/api/v1/admin/profiles/admin-1/toggle-active", "admin-1", `{"active":true}`)
	if rr.Code != http.StatusConflict || errorCode(t, rr).Code != apierrors.CodeSelfModification {
		t.Errorf("самодеактивация: статус = %d", rr.Code)
	}
	if !repo.profiles["admin-1"].Active {
		t.Error("собственный профиль изменён")
	}

	rr = do(t, router, http.MethodPost, "/api/v1/admin/profiles/ghost/toggle-active", "admin-1", `{"active":true}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("несуществующий профиль: статус = %d, ожидается 404", rr.Code)
	}

	rr = do(t, router, http.MethodPost, "/api/v1/admin/profiles/user-1/toggle-active", "admin-1", `{"active":"yes"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("некорректное тело: статус = %d, ожидается 400", rr.Code)
	}
}

func TestToggleProfileActive_StoreFailure(t *testing.T) {
	repo := newMemRepo(profile("admin-1", model.RoleAdmin, true), profile("user-1", model.RoleUser, true))
	repo.writeErr = errors.New("deadlock detected")
	router := newTestRouter(t, repo)

	rr := do(t, router, http.MethodPost, "/api/v1/admin/profiles/user-1/toggle-active", "admin-1", `{"active":true}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("статус = %d, ожидается 502", rr.Code)
	}
	detail := errorCode(t, rr)
	if detail.Code != apierrors.CodeStoreUnavailable || detail.Message != "could not update status" {
		t.Errorf("ошибка = %+v", detail)
	}
	if !repo.profiles["user-1"].Active {
		t.Error("профиль изменён при ошибке записи")
	}
}

func TestChangeProfileRole(t *testing.T) {
	repo := newMemRepo(profile("admin-1", model.RoleAdmin, true), profile("user-1", model.RoleUser, true))
	router := newTestRouter(t, repo)

	rr := do(t, router, http.MethodPut, "/api/v1/admin/profiles/user-1/role", "admin-1", `{"role":"admin"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("статус = %d (%s)", rr.Code, rr.Body.String())
	}
	if p := decodeBody[openapi.Profile](t, rr); p.Role != model.RoleAdmin {
		t.Errorf("role = %q", p.Role)
	}

	rr = do(t, router, http.MethodPut, "/api/v1/admin/profiles/admin-1/role", "admin-1", `{"role":"user"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("смена собственной роли: статус = %d, ожидается 409", rr.Code)
	}

	repo.writeErr = errors.New("read-only transaction")
	rr = do(t, router, http.MethodPut, "/api/v1/admin/profiles/user-1/role", "admin-1", `{"role":"user"}`)
	if rr.Code != http.StatusBadGateway || errorCode(t, rr).Message != "could not update role" {
		t.Errorf("ошибка записи: статус = %d", rr.Code)
	}
}

func TestListProfiles_StoreFailure(t *testing.T) {
	// Решение доступа принимается, потом хранилище отказывает при загрузке списка.
	repo := &failingListRepo{memRepo: newMemRepo(profile("admin-1", model.RoleAdmin, true))}
	router := newTestRouter(t, repo)

	rr := do(t, router, http.MethodGet, "/api/v1/admin/profiles", "admin-1", "")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("статус = %d, ожидается 502", rr.Code)
	}
	if msg := errorCode(t, rr).Message; msg != "could not load users" {
		t.Errorf("message = %q", msg)
	}
}

// failingListRepo — профиль читается, список не загружается.
type failingListRepo struct {
	*memRepo
}

func (failingListRepo) List(context.Context) ([]*model.Profile, error) {
	return nil, errors.New("statement timeout")
}

// --- Health ---

type staticChecker struct{ status string }

func (c staticChecker) CheckReady(context.Context) (string, string) { return c.status, "" }

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name   string
		pg, id ReadinessChecker
		want   int
		status string
	}{
		{"всё ok", staticChecker{"ok"}, staticChecker{"ok"}, http.StatusOK, "ok"},
		{"degraded", staticChecker{"ok"}, staticChecker{"degraded"}, http.StatusOK, "degraded"},
		{"fail", staticChecker{"fail"}, staticChecker{"ok"}, http.StatusServiceUnavailable, "fail"},
		{"nil checker", nil, staticChecker{"ok"}, http.StatusServiceUnavailable, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.id)
			rr := httptest.NewRecorder()
			h.HealthReady(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rr.Code != tt.want {
				t.Errorf("статус = %d, ожидается %d", rr.Code, tt.want)
			}
			if got := decodeBody[healthReadyResponse](t, rr).Status; got != tt.status {
				t.Errorf("status = %q, ожидается %q", got, tt.status)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil, nil).HealthLive(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("статус = %d", rr.Code)
	}
	if resp := decodeBody[healthLiveResponse](t, rr); resp.Service != "ecoportal" {
		t.Errorf("service = %q", resp.Service)
	}
}

func TestToEmail(t *testing.T) {
	if toEmail("") != nil {
		t.Error("пустая строка должна давать nil")
	}
	if toEmail("not-an-email") != nil {
		t.Error("некорректный адрес должен давать nil")
	}
	if e := toEmail("ana@example.org"); e == nil || string(*e) != "ana@example.org" {
		t.Errorf("toEmail = %v", e)
	}
}
