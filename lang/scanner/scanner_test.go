package scanner

import (
	"testing"

	"github.com/loxlang/lox/lang/token"
)

func scanAll(t *testing.T, src string) []TokenAndValue {
	t.Helper()
	var s Scanner
	var errs []string
	s.Init(src, func(pos token.Pos, msg string) {
		errs = append(errs, msg)
	})
	var toks []TokenAndValue
	for {
		tv := s.Scan()
		toks = append(toks, tv)
		if tv.Token == token.EOF {
			break
		}
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected scan errors: %v", errs)
	}
	return toks
}

func tokenKinds(toks []TokenAndValue) []token.Token {
	kinds := make([]token.Token, len(toks))
	for i, tv := range toks {
		kinds[i] = tv.Token
	}
	return kinds
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, `(){},.;+-*/%!= = == > >= < <= <>`)
	want := []token.Token{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.COMMA,
		token.DOT, token.SEMI, token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.PERCENT, token.BANGEQ, token.EQ, token.EQEQ, token.GT, token.GE,
		token.LT, token.LE, token.CONCAT, token.EOF,
	}
	got := tokenKinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanKeywordsAndIdents(t *testing.T) {
	toks := scanAll(t, `let fun while enum foo_bar`)
	want := []token.Token{token.LET, token.FUN, token.WHILE, token.ENUM, token.IDENT, token.EOF}
	got := tokenKinds(toks)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanNumber(t *testing.T) {
	toks := scanAll(t, `42 3.5`)
	if toks[0].Token != token.NUMBER || toks[0].Number != 42 {
		t.Errorf("first number = %+v", toks[0])
	}
	if toks[1].Token != token.NUMBER || toks[1].Number != 3.5 {
		t.Errorf("second number = %+v", toks[1])
	}
}

func TestScanString(t *testing.T) {
	toks := scanAll(t, `"hello world"`)
	if toks[0].Token != token.STRING || toks[0].String != "hello world" {
		t.Errorf("string token = %+v", toks[0])
	}
}

func TestScanComment(t *testing.T) {
	toks := scanAll(t, "let x = 1; // trailing comment\nlet y = 2;")
	kinds := tokenKinds(toks)
	count := 0
	for _, k := range kinds {
		if k == token.LET {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected 2 let tokens, got %d in %v", count, kinds)
	}
}

func TestScanUnterminatedString(t *testing.T) {
	var s Scanner
	var errs []string
	s.Init(`"oops`, func(pos token.Pos, msg string) {
		errs = append(errs, msg)
	})
	tv := s.Scan()
	if tv.Token != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %v", tv.Token)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestScanEOFIsSticky(t *testing.T) {
	var s Scanner
	s.Init("", nil)
	for i := 0; i < 3; i++ {
		if tv := s.Scan(); tv.Token != token.EOF {
			t.Fatalf("Scan() = %v, want EOF", tv.Token)
		}
	}
}
