package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLex_Text(t *testing.T) {
	out, _, err := runCommand(t, NewLexCommand(testOptions(t, "text")), `.name: .likes > 8 & .tag = "a b"`)
	require.NoError(t, err)
	assert.Equal(t, `property .name @0
':' @5
property .likes @7
'>' @14
number 8 @16
'&' @18
property .tag @20
'=' @25
string "a b" @27
`, out)
}

func TestLex_JSON(t *testing.T) {
	out, _, err := runCommand(t, NewLexCommand(testOptions(t, "json")), "~ orderby(.likes) desc")
	require.NoError(t, err)

	var tokens []TokenOutput
	decodeResponse(t, out, &tokens)
	assert.Equal(t, []TokenOutput{
		{Kind: "'~'", Lexeme: "~", Pos: 0},
		{Kind: "function", Lexeme: "orderby(.likes)", Pos: 2},
		{Kind: "word", Lexeme: "desc", Pos: 18},
	}, tokens)
}

func TestLex_RequiresStatement(t *testing.T) {
	_, _, err := runCommand(t, NewLexCommand(testOptions(t, "text")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}
