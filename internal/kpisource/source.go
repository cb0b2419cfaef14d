// Пакет kpisource — получение сырого текста CSV-ресурса с KPI.
//
// Источник возвращает текст целиком, разбором занимается пакет kpi.
// Любая ошибка источника трактуется вызывающей стороной как
// «ресурс недоступен».
package kpisource

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultFile — имя встроенного ресурса.
const DefaultFile = "kpis-completo.csv"

// maxBodySize — ограничение на размер ответа HTTP-источника (8 MiB).
const maxBodySize = 8 << 20

//go:embed data/kpis-completo.csv
var embedded embed.FS

// ErrUnavailable — ресурс не удалось получить.
var ErrUnavailable = errors.New("ресурс KPI недоступен")

// Source — источник CSV-текста.
type Source interface {
	// Fetch возвращает полный текст ресурса.
	Fetch(ctx context.Context) (string, error)
	// Name — стабильное имя источника (ключ кэша, лейбл метрик).
	Name() string
}

// HTTPSource загружает ресурс GET-запросом.
type HTTPSource struct {
	url    string
	client *http.Client
	limit  int64
}

// NewHTTPSource создаёт HTTP-источник. Если client == nil, используется http.DefaultClient.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{url: url, client: client, limit: maxBodySize}
}

// Name возвращает URL ресурса.
func (s *HTTPSource) Name() string {
	return s.url
}

// URL возвращает адрес ресурса (для мониторинга зависимостей).
func (s *HTTPSource) URL() string {
	return s.url
}

// Fetch выполняет GET. Любой статус вне 2xx и ответ больше лимита — ошибка.
func (s *HTTPSource) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	// Лишний байт сверх лимита отличает полный ответ от обрезанного.
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.limit+1))
	if err != nil {
		return "", fmt.Errorf("%w: чтение ответа: %v", ErrUnavailable, err)
	}
	if int64(len(body)) > s.limit {
		return "", fmt.Errorf("%w: ответ больше %d байт", ErrUnavailable, s.limit)
	}
	return string(body), nil
}

// FileSource читает ресурс из файловой системы.
type FileSource struct {
	fsys fs.FS
	name string
	path string
}

// NewFileSource создаёт источник, читающий файл path из fsys.
func NewFileSource(fsys fs.FS, path string) *FileSource {
	return &FileSource{fsys: fsys, name: "file:" + path, path: path}
}

// NewPathSource создаёт источник по пути в локальной файловой системе.
func NewPathSource(path string) *FileSource {
	dir, file := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	s := NewFileSource(os.DirFS(dir), file)
	s.name = "file:" + path
	return s
}

// NewEmbeddedSource возвращает источник со встроенным примером ресурса.
func NewEmbeddedSource() *FileSource {
	sub, _ := fs.Sub(embedded, "data")
	s := NewFileSource(sub, DefaultFile)
	s.name = "embedded:" + DefaultFile
	return s
}

// Name возвращает имя источника.
func (s *FileSource) Name() string {
	return s.name
}

// Fetch читает файл целиком.
func (s *FileSource) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	data, err := fs.ReadFile(s.fsys, s.path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return string(data), nil
}

// New выбирает источник по конфигурации: URL приоритетнее пути,
// без обоих используется встроенный ресурс.
func New(url, path string, client *http.Client) Source {
	switch {
	case url != "":
		return NewHTTPSource(url, client)
	case path != "":
		return NewPathSource(path)
	default:
		return NewEmbeddedSource()
	}
}
