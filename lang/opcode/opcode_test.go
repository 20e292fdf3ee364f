package opcode

import "testing"

func TestString(t *testing.T) {
	if Constant.String() != "constant" {
		t.Errorf("Constant.String() = %q", Constant.String())
	}
	if got := Opcode(250).String(); got != "illegal op (250)" {
		t.Errorf("illegal opcode String() = %q", got)
	}
}

func TestOperands(t *testing.T) {
	cases := []struct {
		op   Opcode
		want int
	}{
		{Constant, 1},
		{Call, 3},
		{Add, 0},
		{Jump, 1},
		{Return, 0},
	}
	for _, c := range cases {
		if got := c.op.Operands(); got != c.want {
			t.Errorf("%v.Operands() = %d, want %d", c.op, got, c.want)
		}
	}
}
