package maincmd_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loxlang/lox/internal/maincmd"
)

func runREPL(t *testing.T, input string) (stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{
		Stdin:  strings.NewReader(input),
		Stdout: &out,
		Stderr: &errOut,
	}
	err := maincmd.RunREPL(context.Background(), stdio, false, "lox -> ")
	require.NoError(t, err)
	return out.String(), errOut.String()
}

func TestREPLPromptIsLoxArrow(t *testing.T) {
	out, _ := runREPL(t, "")
	assert.Equal(t, "lox -> ", out)
}

func TestREPLSingleLineIsRunImmediately(t *testing.T) {
	out, errOut := runREPL(t, "print(1+2);\n")
	assert.Empty(t, errOut)
	assert.Contains(t, out, "3")
}

func TestREPLBraceOpensContinuationPrompt(t *testing.T) {
	out, errOut := runREPL(t, "fun add(a, b) {\nreturn a + b;\n}\nprint(add(2, 3));\n")
	require.Empty(t, errOut)
	assert.Contains(t, out, "......  ")
	assert.Contains(t, out, "5")
}

func TestREPLDeclarationPersistsAcrossLines(t *testing.T) {
	out, errOut := runREPL(t, "let x = 10;\nprint(x);\n")
	require.Empty(t, errOut)
	assert.Contains(t, out, "10")
}

func TestREPLPerLineErrorDoesNotTerminateSession(t *testing.T) {
	out, errOut := runREPL(t, "1 = 2;\nprint(42);\n")
	assert.NotEmpty(t, errOut)
	assert.Contains(t, out, "42")
}
