package repl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsMoreInputTracksBraceDepth(t *testing.T) {
	assert.False(t, needsMoreInput(`var a = 1;`))
	assert.True(t, needsMoreInput(`fun f() {`))
	assert.False(t, needsMoreInput("fun f() {\nprint 1;\n}"))
}

func TestNeedsMoreInputIgnoresBracesInsideStrings(t *testing.T) {
	assert.False(t, needsMoreInput(`print "{ not a block }";`))
}

func TestIsBareExpressionRecognizesExpressionsOnly(t *testing.T) {
	assert.True(t, isBareExpression(`1 + 2`))
	assert.False(t, isBareExpression(`var a = 1;`))
	assert.False(t, isBareExpression(`print 1;`))
	assert.False(t, isBareExpression(`if (true) { 1; }`))
}

func TestRunEchoesBareExpressionsInteractiveOrNot(t *testing.T) {
	in := bytes.NewBufferString("1 + 1\nexit\n")
	var out bytes.Buffer

	Run(in, &out, 0, 0)

	assert.Contains(t, out.String(), "2\n")
}

func TestRunPersistsGlobalsAcrossLines(t *testing.T) {
	in := bytes.NewBufferString("var x = 10;\nprint x + 1;\nexit\n")
	var out bytes.Buffer

	Run(in, &out, 0, 0)

	assert.Contains(t, out.String(), "11\n")
}
