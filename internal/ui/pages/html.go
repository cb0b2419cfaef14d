// Пакет pages — компоненты страниц UI портала (github.com/a-h/templ).
// Компоненты собираются через templ.ComponentFunc, весь текст экранируется.
package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// htmlWriter запоминает первую ошибку записи, дальнейшие вызовы игнорируются.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// text пишет экранированный текст.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr пишет атрибут с экранированным значением: ` name="value"`.
func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + `="`)
	h.text(value)
	h.raw(`"`)
}

// component рендерит вложенный компонент в тот же writer.
func (h *htmlWriter) component(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// build создаёт templ.Component из функции рендеринга.
func build(fn func(ctx context.Context, h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		fn(ctx, h)
		return h.err
	})
}
