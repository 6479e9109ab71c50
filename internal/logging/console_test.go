package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestConsole(opts ...ConsoleOption) (*Console, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewConsole(&out, &errOut, opts...), &out, &errOut
}

func TestConsole_Styles(t *testing.T) {
	tests := []struct {
		style Style
		want  string
	}{
		{StyleDefault, "hello\n"},
		{StyleHeader, "# hello\n"},
		{StyleInfo, "ℹ hello\n"},
		{StyleSuccess, "✓ hello\n"},
		{StyleWarning, "⚠ hello\n"},
		{Style("unknown"), "hello\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			c, out, errOut := newTestConsole()
			c.Message("hello", tt.style)
			assert.Equal(t, tt.want, out.String())
			assert.Empty(t, errOut.String())
		})
	}
}

func TestConsole_ErrorGoesToErrOut(t *testing.T) {
	c, out, errOut := newTestConsole()
	c.Message("boom", StyleError)

	assert.Empty(t, out.String())
	assert.Equal(t, "✗ boom\n", errOut.String())
}

func TestConsole_Debug(t *testing.T) {
	c, out, _ := newTestConsole()
	c.Debug("hidden")
	assert.Empty(t, out.String())
	assert.False(t, c.Verbose())

	c, out, _ = newTestConsole(WithVerbose(true))
	c.Debug("shown")
	assert.Equal(t, "🔍 shown\n", out.String())
}

func TestConsole_Title(t *testing.T) {
	c, out, _ := newTestConsole()
	c.Title("codx 配方")
	assert.Equal(t, "codx 配方\n"+"─────────\n", out.String())
}

func TestConsole_Field(t *testing.T) {
	c, out, _ := newTestConsole()
	c.Field("Author", "jane", 8)
	c.Field("Skipped", "", 8)
	assert.Equal(t, "Author:   jane\n", out.String())
}

func TestConsole_Detail(t *testing.T) {
	c, out, _ := newTestConsole()
	c.Detail("Recipe file", "/tmp/recipe.yml")
	c.Detail("Recipe author", "")
	c.Detail("A label longer than the detail width", "x")
	assert.Equal(t, "Recipe file............. : /tmp/recipe.yml\nA label longer than the detail width : x\n", out.String())
}

func TestConsole_MarkdownPlain(t *testing.T) {
	c, out, _ := newTestConsole()
	c.Markdown("**bold**")
	assert.Equal(t, "**bold**\n", out.String())
}
