// Пакет i18n — переводы UI портала.
//
// Языки перечислены в таблице locales, первый из них — язык по умолчанию.
// Язык запроса выбирает Middleware: cookie "lang", затем Accept-Language.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLang — язык по умолчанию.
const DefaultLang = "es"

// locale — поддерживаемый язык: код каталога и тег для matcher.
type locale struct {
	code string
	tag  language.Tag
}

// locales — порядок важен: matcher при отсутствии совпадения выбирает первый.
var locales = []locale{
	{code: DefaultLang, tag: language.Spanish},
	{code: "en", tag: language.English},
}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, len(locales))
	for i, l := range locales {
		tags[i] = l.tag
	}
	return language.NewMatcher(tags)
}()

// Languages возвращает коды поддерживаемых языков, язык по умолчанию первым.
func Languages() []string {
	codes := make([]string, len(locales))
	for i, l := range locales {
		codes[i] = l.code
	}
	return codes
}

// IsSupported сообщает, есть ли каталог для языка.
func IsSupported(lang string) bool {
	for _, l := range locales {
		if l.code == lang {
			return true
		}
	}
	return false
}

// MatchLanguage выбирает язык по заголовку Accept-Language.
// Индекс совпадения указывает прямо в таблицу locales.
func MatchLanguage(acceptLanguage string) string {
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return DefaultLang
	}
	_, idx, conf := matcher.Match(prefs...)
	if conf == language.No {
		return DefaultLang
	}
	return locales[idx].code
}

// Bundle — каталоги переводов: язык → ключ → строка.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{
		catalogs: make(map[string]map[string]string),
		logger:   logger,
	}
}

// LoadMessages загружает плоский JSON-каталог {"key": "строка"} для языка.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: каталог %s: %w", lang, err)
	}

	b.mu.Lock()
	b.catalogs[lang] = messages
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Info("Каталог переводов загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

func (b *Bundle) lookup(lang, key string) (string, bool) {
	msg, ok := b.catalogs[lang][key]
	return msg, ok
}

// Translate возвращает строку для языка, затем для DefaultLang.
// Ненайденный ключ возвращается как есть.
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if msg, ok := b.lookup(lang, key); ok {
		return msg
	}
	if msg, ok := b.lookup(DefaultLang, key); ok {
		return msg
	}
	return key
}

// Translatef — Translate с подстановкой аргументов.
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	format := b.Translate(lang, key)
	if len(args) == 0 {
		return format
	}
	return formatFunc(format, args...)
}

// formatFunc скрывает вызов Sprintf от printf-проверки go vet:
// форматы приходят из каталогов во время выполнения.
var formatFunc = fmt.Sprintf

var (
	globalBundle *Bundle
	globalOnce   sync.Once
)

// Init создаёт глобальный Bundle при первом вызове.
func Init(logger *slog.Logger) *Bundle {
	globalOnce.Do(func() {
		globalBundle = NewBundle(logger)
	})
	return globalBundle
}

// GetBundle возвращает глобальный Bundle или nil до Init.
func GetBundle() *Bundle {
	return globalBundle
}

type contextKey struct{}

// WithLang сохраняет язык запроса в контексте.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKey{}, lang)
}

// LangFromContext возвращает язык запроса или DefaultLang.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// T переводит ключ на язык запроса. До Init возвращает ключ.
func T(ctx context.Context, key string) string {
	if globalBundle == nil {
		return key
	}
	return globalBundle.Translate(LangFromContext(ctx), key)
}

// Tf — T с подстановкой аргументов.
func Tf(ctx context.Context, key string, args ...any) string {
	if globalBundle == nil {
		if len(args) == 0 {
			return key
		}
		return formatFunc(key, args...)
	}
	return globalBundle.Translatef(LangFromContext(ctx), key, args...)
}
