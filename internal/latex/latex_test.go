package latex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessUnhandledWithoutMathSpan(t *testing.T) {
	p := NewUnicodePlugin()
	result := p.Process("just prose, no math here")
	require.Equal(t, Unhandled, result.Outcome)
}

func TestProcessSubstitutesGreekLetters(t *testing.T) {
	p := NewUnicodePlugin()
	result := p.Process(`energy is $E = mc^2$ via $\alpha$ decay`)
	require.Equal(t, Replaced, result.Outcome)
	require.Contains(t, result.Chunks[0], "α")
	require.Contains(t, result.Chunks[0], "²")
}

func TestProcessHandlesDisplayMath(t *testing.T) {
	p := NewUnicodePlugin()
	result := p.Process(`$$\sum_{i=1}^{n} x_i$$`)
	require.Equal(t, Replaced, result.Outcome)
	require.Contains(t, result.Chunks[0], "∑")
	require.Contains(t, result.Chunks[0], "ⁿ")
}

func TestProcessLeavesUnknownMacrosAsIs(t *testing.T) {
	p := NewUnicodePlugin()
	result := p.Process(`$\unknownmacro{x}$`)
	require.Equal(t, Replaced, result.Outcome)
	require.Contains(t, result.Chunks[0], `\unknownmacro`)
}
