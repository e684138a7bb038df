package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutor-chat/internal/domain"
)

func TestHTMLRenderer_Render(t *testing.T) {
	r := NewHTMLRenderer()

	t.Run("проза экранируется, переводы строк становятся <br>", func(t *testing.T) {
		out := r.Render([]domain.Segment{domain.Prose("a < b & c > \"d\"\nligne 2\n\nligne 4")})
		assert.Equal(t,
			`<div class="prose">a &lt; b &amp; c &gt; &#34;d&#34;<br>ligne 2<br><br>ligne 4</div>`,
			out)
	})

	t.Run("блок кода несет язык в атрибуте, а не в содержимом", func(t *testing.T) {
		out := r.Render([]domain.Segment{domain.Code("python", "if a < b:\n    print(\"<ok>\")")})
		assert.Equal(t,
			`<pre class="code-block" data-lang="python"><code class="language-python">if a &lt; b:
    print(&#34;&lt;ok&gt;&#34;)</code></pre>`,
			out)
	})

	t.Run("пустой блок кода все равно отрисовывается", func(t *testing.T) {
		out := r.Render([]domain.Segment{domain.Code("sql", "")})
		assert.Equal(t, `<pre class="code-block" data-lang="sql"><code class="language-sql"></code></pre>`, out)
	})

	t.Run("неизвестный язык проходит как литеральный тег", func(t *testing.T) {
		out := r.Render([]domain.Segment{domain.Code("haskell", "main = pure ()")})
		assert.Contains(t, out, `data-lang="haskell"`)
		assert.Contains(t, out, `class="language-haskell"`)
	})

	t.Run("уже экранированный текст экранируется ровно один раз", func(t *testing.T) {
		out := r.Render([]domain.Segment{domain.Prose("&lt;b&gt;")})
		assert.Equal(t, `<div class="prose">&amp;lt;b&amp;gt;</div>`, out)
	})

	t.Run("рендеринг не изменяет вход", func(t *testing.T) {
		segments := []domain.Segment{domain.Prose("x\ny"), domain.Code("python", "<a>")}
		snapshot := append([]domain.Segment(nil), segments...)
		_ = r.Render(segments)
		assert.Equal(t, snapshot, segments)
	})

	t.Run("пользовательское соответствие классов", func(t *testing.T) {
		custom := NewHTMLRenderer(WithLanguageClasses(map[string]string{"python": "lang-py"}))
		out := custom.Render([]domain.Segment{domain.Code("python", "pass")})
		assert.Contains(t, out, `class="lang-py"`)
		assert.Contains(t, out, `data-lang="python"`)
	})
}

func TestHTMLRenderer_NoRawMarkupCharacters(t *testing.T) {
	r := NewHTMLRenderer()
	inputs := []string{`<script>alert("x")</script>`, `a & b`, `"quoted"`, `1 > 0`}

	for _, in := range inputs {
		for _, seg := range []domain.Segment{domain.Prose(in), domain.Code("python", in)} {
			out := r.Render([]domain.Segment{seg})
			inner := stripWrapper(t, out)
			assert.NotContains(t, inner, "<", "input %q", in)
			assert.NotContains(t, inner, ">", "input %q", in)
			assert.NotContains(t, inner, `"`, "input %q", in)
			assert.NotContains(t, strings.ReplaceAll(inner, "&amp;", ""), "& ", "input %q", in)
		}
	}
}

// stripWrapper возвращает содержимое внутри внешних тегов разметки фрагмента.
func stripWrapper(t *testing.T, out string) string {
	t.Helper()
	start := strings.LastIndex(out[:strings.Index(out, "</")], ">")
	end := strings.Index(out, "</")
	require.True(t, start >= 0 && end > start, "unexpected markup %q", out)
	return out[start+1 : end]
}

type fakeHighlighter struct{}

func (fakeHighlighter) Highlight(language, code string) (string, bool) {
	if language != "python" {
		return "", false
	}
	return `<span class="k">` + strings.ToUpper(code) + `</span>`, true
}

func TestHTMLRenderer_Highlighter(t *testing.T) {
	r := NewHTMLRenderer(WithHighlighter(fakeHighlighter{}))

	out := r.Render([]domain.Segment{domain.Code("python", "pass"), domain.Code("sql", "<x>")})
	assert.Contains(t, out, `<span class="k">PASS</span>`)
	assert.Contains(t, out, `&lt;x&gt;`)
}

func TestChromaHighlighter(t *testing.T) {
	h := NewHTMLHighlighter("github")

	out, ok := h.Highlight("python", "print('<b>')")
	require.True(t, ok)
	assert.Contains(t, out, "&lt;b&gt;")
	assert.NotContains(t, out, "<pre")

	_, ok = h.Highlight("haskell", "main = pure ()")
	assert.False(t, ok, "подсвечиваются только языки редактора")

	var css strings.Builder
	require.NoError(t, h.WriteCSS(&css))
	assert.NotEmpty(t, css.String())
}

func TestTelegram(t *testing.T) {
	out := Telegram([]domain.Segment{
		domain.Prose("Résultat :\n"),
		domain.Code("sql", "SELECT * FROM t WHERE a < 3;"),
	})
	assert.Equal(t,
		"Résultat :\n<pre><code class=\"language-sql\">SELECT * FROM t WHERE a &lt; 3;</code></pre>",
		out)
}

func TestTelegramRenderer(t *testing.T) {
	segments := []domain.Segment{domain.Prose("a & b")}
	assert.Equal(t, Telegram(segments), TelegramRenderer{}.Render(segments))
}

func TestTerminalRenderer(t *testing.T) {
	segments := []domain.Segment{
		domain.Prose("Voici :"),
		domain.Code("sql", "SELECT 1;\nSELECT 2;"),
		domain.Prose("Fin."),
	}

	t.Run("plain", func(t *testing.T) {
		out := NewTerminalRenderer(nil).Render(segments)
		assert.Equal(t, "Voici :\n┌─ sql\n│ SELECT 1;\n│ SELECT 2;\n└─\nFin.", out)
	})

	t.Run("highlighted", func(t *testing.T) {
		out := NewTerminalRenderer(NewTerminalHighlighter("monokai")).Render(segments)
		assert.Contains(t, out, "\x1b[")
		assert.Contains(t, out, "┌─ sql\n")
		assert.True(t, strings.HasSuffix(out, "└─\nFin."))
	})

	t.Run("unknown language is not highlighted", func(t *testing.T) {
		out := NewTerminalRenderer(NewTerminalHighlighter("monokai")).Render([]domain.Segment{domain.Code("plaintext", "a < b")})
		assert.Equal(t, "┌─ plaintext\n│ a < b\n└─\n", out)
	})
}
