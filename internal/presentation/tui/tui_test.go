package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/flatval/internal/presentation/tui"
	"github.com/aretw0/flatval/pkg/decode"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyler(t *testing.T) {
	plain := tui.Styler(termenv.Ascii)
	assert.Equal(t, `"x"`, plain(decode.KindString, false, `"x"`))
	assert.Equal(t, "boom", plain(decode.KindUndefined, true, "boom"))

	color := tui.Styler(termenv.TrueColor)
	styled := color(decode.KindString, false, `"x"`)
	assert.NotEqual(t, `"x"`, styled)
	assert.Contains(t, styled, `"x"`)
	assert.Contains(t, styled, "\x1b[")

	assert.Equal(t, "(2) []", color(decode.KindArray, false, "(2) []"), "composites keep the default colour")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, termenv.Ascii, "1.2.3\n")
	assert.Contains(t, buf.String(), "v1.2.3  :help")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestNewRenderer(t *testing.T) {
	out, err := tui.NewRenderer(60)("# Commands\n\n- `:help`")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Commands"))
	assert.True(t, strings.Contains(out, ":help"))
}
