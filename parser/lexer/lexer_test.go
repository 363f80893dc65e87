package lexer_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/file"
	. "github.com/formula-lang/formula/parser/lexer"
)

func tok(kind Kind, value string) Token {
	return Token{Kind: kind, Value: value}
}

func TestLex(t *testing.T) {
	tests := []struct {
		input  string
		tokens []Token
	}{
		{
			"a.b?.c ?? 1",
			[]Token{
				tok(Identifier, "a"), tok(Operator, "."), tok(Identifier, "b"),
				tok(Operator, "?."), tok(Identifier, "c"), tok(Operator, "??"),
				tok(Number, "1"), tok(EOF, ""),
			},
		},
		{
			"x |> f(#) ?|> g",
			[]Token{
				tok(Identifier, "x"), tok(Operator, "|>"), tok(Identifier, "f"),
				tok(Bracket, "("), tok(Operator, "#"), tok(Bracket, ")"),
				tok(Operator, "?|>"), tok(Identifier, "g"), tok(EOF, ""),
			},
		},
		{
			"a !is Int and not !b",
			[]Token{
				tok(Identifier, "a"), tok(Operator, "!is"), tok(Identifier, "Int"),
				tok(Operator, "and"), tok(Operator, "not"), tok(Operator, "!"),
				tok(Identifier, "b"), tok(EOF, ""),
			},
		},
		{
			"a != b !has c",
			[]Token{
				tok(Identifier, "a"), tok(Operator, "!="), tok(Identifier, "b"),
				tok(Operator, "!has"), tok(Identifier, "c"), tok(EOF, ""),
			},
		},
		{
			`#[1, 2] #{"a": 1.5}`,
			[]Token{
				tok(Bracket, "#["), tok(Number, "1"), tok(Operator, ","), tok(Number, "2"), tok(Bracket, "]"),
				tok(Bracket, "#{"), tok(String, "a"), tok(Operator, ":"), tok(Number, "1.5"), tok(Bracket, "}"),
				tok(EOF, ""),
			},
		},
		{
			"[...xs, .5]",
			[]Token{
				tok(Bracket, "["), tok(Operator, "..."), tok(Identifier, "xs"),
				tok(Operator, ","), tok(Number, ".5"), tok(Bracket, "]"), tok(EOF, ""),
			},
		},
		{
			"1 // 2 /* comment */ ** 3",
			[]Token{
				tok(Number, "1"), tok(Operator, "//"), tok(Number, "2"),
				tok(Operator, "**"), tok(Number, "3"), tok(EOF, ""),
			},
		},
		{
			"a < b <= c <> d ++ e ~~ f",
			[]Token{
				tok(Identifier, "a"), tok(Operator, "<"), tok(Identifier, "b"),
				tok(Operator, "<="), tok(Identifier, "c"), tok(Operator, "<>"),
				tok(Identifier, "d"), tok(Operator, "++"), tok(Identifier, "e"),
				tok(Operator, "~~"), tok(Identifier, "f"), tok(EOF, ""),
			},
		},
		{
			"let x = 0x1F in x => @s &a",
			[]Token{
				tok(Keyword, "let"), tok(Identifier, "x"), tok(Operator, "="), tok(Number, "0x1F"),
				tok(Keyword, "in"), tok(Identifier, "x"), tok(Operator, "=>"),
				tok(Operator, "@"), tok(Identifier, "s"), tok(Operator, "&"), tok(Identifier, "a"),
				tok(EOF, ""),
			},
		},
		{
			`'it\'s' "tab\t"`,
			[]Token{tok(String, "it's"), tok(String, "tab\t"), tok(EOF, "")},
		},
		{
			"fn<T>(# a: T)",
			[]Token{
				tok(Keyword, "fn"), tok(Operator, "<"), tok(Identifier, "T"), tok(Operator, ">"),
				tok(Bracket, "("), tok(Operator, "#"), tok(Identifier, "a"), tok(Operator, ":"),
				tok(Identifier, "T"), tok(Bracket, ")"), tok(EOF, ""),
			},
		},
		{
			`f(<div class="a">{x < 1}<br /></div>)`,
			[]Token{
				tok(Identifier, "f"), tok(Bracket, "("),
				tok(View, `<div class="a">{x < 1}<br /></div>`),
				tok(Bracket, ")"), tok(EOF, ""),
			},
		},
		{
			"x.type",
			[]Token{tok(Identifier, "x"), tok(Operator, "."), tok(Keyword, "type"), tok(EOF, "")},
		},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			tokens, err := Lex(file.NewSource(test.input))
			require.NoError(t, err)
			if diff := cmp.Diff(test.tokens, tokens, cmpopts.IgnoreFields(Token{}, "Location")); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLex_location(t *testing.T) {
	tokens, err := Lex(file.NewSource("ab + 中文"))
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, file.Location{From: 0, To: 2}, tokens[0].Location)
	assert.Equal(t, file.Location{From: 3, To: 4}, tokens[1].Location)
	assert.Equal(t, file.Location{From: 5, To: 7}, tokens[2].Location)
	assert.Equal(t, "中文", tokens[2].Value)
}

func TestLexRange(t *testing.T) {
	source := file.NewSource("<p>{a + 1}</p>")
	tokens, err := LexRange(source, 4, 9)
	require.NoError(t, err)
	want := []Token{tok(Identifier, "a"), tok(Operator, "+"), tok(Number, "1"), tok(EOF, "")}
	if diff := cmp.Diff(want, tokens, cmpopts.IgnoreFields(Token{}, "Location")); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, file.Location{From: 4, To: 5}, tokens[0].Location)
}

func TestLex_error(t *testing.T) {
	tests := []struct {
		input string
		err   string
	}{
		{`"abc`, "literal not terminated"},
		{"a ~ b", "unrecognized character: U+007E '~'"},
		{"a /* b", "unclosed comment"},
		{"a..b", "unexpected token .."},
		{"1a", "bad number syntax"},
		{"<div>", "view element is not closed"},
		{`"\q"`, "invalid char escape"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			_, err := Lex(file.NewSource(test.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.err)
		})
	}
}

func TestUnescape(t *testing.T) {
	s, err := Unescape(`"中\x41\n"`)
	require.NoError(t, err)
	assert.Equal(t, "中A\n", s)

	_, err = Unescape(`"abc'`)
	assert.Error(t, err)
}
