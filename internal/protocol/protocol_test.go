package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLexWordsAndNumbers(t *testing.T) {
	tokens := Lex("set counter 42")
	require.Len(t, tokens, 3)
	require.Equal(t, TokenWord, tokens[0].Kind)
	require.Equal(t, "set", tokens[0].Text)
	require.Equal(t, TokenWord, tokens[1].Kind)
	require.Equal(t, TokenNumber, tokens[2].Kind)
	require.Equal(t, "42", tokens[2].Text)
}

func TestLexSignedNumber(t *testing.T) {
	tokens := Lex("expire k -10")
	require.Equal(t, TokenNumber, tokens[2].Kind)
	v, err := tokens[2].Int64()
	require.NoError(t, err)
	require.Equal(t, int64(-10), v)
}

func TestLexQuotedStringWithSpaces(t *testing.T) {
	tokens := Lex(`set greeting "hello there"`)
	require.Len(t, tokens, 3)
	require.Equal(t, TokenString, tokens[2].Kind)
	require.Equal(t, "hello there", tokens[2].Text)
}

func TestLexAtPrefixedIdentifier(t *testing.T) {
	tokens := Lex("sub @hook:orders")
	require.Equal(t, TokenWord, tokens[1].Kind)
	require.Equal(t, "@hook:orders", tokens[1].Text)
}

func TestParseEmptyLineYieldsNil(t *testing.T) {
	require.Nil(t, Parse(""))
	require.Nil(t, Parse("   "))
	require.Nil(t, Parse("\r\n"))
}

func TestParseCommandLowercasesName(t *testing.T) {
	cmd := Parse("SET foo bar")
	require.NotNil(t, cmd)
	require.Equal(t, "set", cmd.Name)
	require.Equal(t, "foo", cmd.Arg(0))
	require.Equal(t, "bar", cmd.Arg(1))
}

func TestParseArgInt(t *testing.T) {
	cmd := Parse("expire k 30")
	require.NotNil(t, cmd)
	v, ok := cmd.ArgInt(1)
	require.True(t, ok)
	require.Equal(t, int64(30), v)
}

func TestParseArgIntOutOfRange(t *testing.T) {
	cmd := Parse("ttl k")
	_, ok := cmd.ArgInt(5)
	require.False(t, ok)
}

func TestParseStripsTrailingCRLF(t *testing.T) {
	cmd := Parse("get foo\r\n")
	require.NotNil(t, cmd)
	require.Equal(t, "foo", cmd.Arg(0))
}
