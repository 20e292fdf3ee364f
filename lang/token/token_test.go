package token

import "testing"

func TestLookup(t *testing.T) {
	cases := []struct {
		ident string
		want  Token
	}{
		{"let", LET},
		{"fun", FUN},
		{"while", WHILE},
		{"enum", ENUM},
		{"not", NOT},
		{"xyz", IDENT},
		{"_", IDENT},
	}
	for _, c := range cases {
		if got := Lookup(c.ident); got != c.want {
			t.Errorf("Lookup(%q) = %v, want %v", c.ident, got, c.want)
		}
	}
}

func TestTokenString(t *testing.T) {
	if LPAREN.String() != "(" {
		t.Errorf("LPAREN.String() = %q", LPAREN.String())
	}
	if LPAREN.GoString() != "'('" {
		t.Errorf("LPAREN.GoString() = %q", LPAREN.GoString())
	}
	if IDENT.GoString() != "identifier" {
		t.Errorf("IDENT.GoString() = %q", IDENT.GoString())
	}
}
