package token

import "testing"

func TestMakePosRoundTrip(t *testing.T) {
	cases := []struct {
		line, col int
	}{
		{1, 1},
		{1, 20},
		{42, 7},
		{MaxLines, MaxCols},
	}
	for _, c := range cases {
		p := MakePos(c.line, c.col)
		line, col := p.LineCol()
		if line != c.line || col != c.col {
			t.Errorf("MakePos(%d, %d).LineCol() = (%d, %d)", c.line, c.col, line, col)
		}
	}
}

func TestPosUnknown(t *testing.T) {
	if !Pos(0).Unknown() {
		t.Error("zero Pos should be unknown")
	}
	if MakePos(1, 1).Unknown() {
		t.Error("(1,1) should be known")
	}
}
