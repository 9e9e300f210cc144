package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ember/token"
)

func TestNextTokenPunctuationAndKeywords(t *testing.T) {
	input := `class Bagel {}
int x = 5;
float y = 1.5;
string name = "Toast";
print x + y;
if (x >= 1 and x != 0) { return; }
// a comment
nil true false
`

	tests := []struct {
		expectedType   token.Type
		expectedLexeme string
	}{
		{token.CLASS, "class"},
		{token.IDENTIFIER, "Bagel"},
		{token.LEFT_BRACE, "{"},
		{token.RIGHT_BRACE, "}"},
		{token.INT, "int"},
		{token.IDENTIFIER, "x"},
		{token.EQUAL, "="},
		{token.INT_LITERAL, "5"},
		{token.SEMICOLON, ";"},
		{token.FLOAT, "float"},
		{token.IDENTIFIER, "y"},
		{token.EQUAL, "="},
		{token.FLOAT_LITERAL, "1.5"},
		{token.SEMICOLON, ";"},
		{token.STRING, "string"},
		{token.IDENTIFIER, "name"},
		{token.EQUAL, "="},
		{token.STRING_LITERAL, "Toast"},
		{token.SEMICOLON, ";"},
		{token.PRINT, "print"},
		{token.IDENTIFIER, "x"},
		{token.PLUS, "+"},
		{token.IDENTIFIER, "y"},
		{token.SEMICOLON, ";"},
		{token.IF, "if"},
		{token.LEFT_PAREN, "("},
		{token.IDENTIFIER, "x"},
		{token.GREATER_EQUAL, ">="},
		{token.INT_LITERAL, "1"},
		{token.AND, "and"},
		{token.IDENTIFIER, "x"},
		{token.BANG_EQUAL, "!="},
		{token.INT_LITERAL, "0"},
		{token.RIGHT_PAREN, ")"},
		{token.LEFT_BRACE, "{"},
		{token.RETURN, "return"},
		{token.SEMICOLON, ";"},
		{token.RIGHT_BRACE, "}"},
		{token.NIL, "nil"},
		{token.TRUE, "true"},
		{token.FALSE, "false"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		assert.Equalf(t, tt.expectedType, tok.Type, "token %d", i)
		assert.Equalf(t, tt.expectedLexeme, tok.Lexeme, "token %d", i)
	}
}

func TestNextTokenNumberPayloads(t *testing.T) {
	l := New("42 3.25")

	tok := l.NextToken()
	require := assert.New(t)
	require.Equal(token.INT_LITERAL, tok.Type)
	require.EqualValues(42, tok.IntValue)

	tok = l.NextToken()
	require.Equal(token.FLOAT_LITERAL, tok.Type)
	require.InDelta(3.25, tok.FloatValue, 1e-9)
}

func TestNextTokenStringSpansLines(t *testing.T) {
	l := New("\"line one\nline two\" x")
	tok := l.NextToken()
	assert.Equal(t, token.STRING_LITERAL, tok.Type)
	assert.Equal(t, "line one\nline two", tok.StringValue)
	assert.Equal(t, 1, tok.Line)

	tok = l.NextToken()
	assert.Equal(t, token.IDENTIFIER, tok.Type)
	assert.Equal(t, 2, tok.Line)
}
