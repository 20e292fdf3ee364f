package native

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/loxlang/lox/lang/value"
)

type fakeStack struct {
	stack []value.Value
	out   bytes.Buffer
	start time.Time
}

func newFakeStack(vals ...value.Value) *fakeStack {
	return &fakeStack{stack: vals, start: time.Now()}
}

func (f *fakeStack) Pop() (value.Value, bool) {
	if len(f.stack) == 0 {
		return nil, false
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, true
}
func (f *fakeStack) Push(v value.Value)   { f.stack = append(f.stack, v) }
func (f *fakeStack) Stdout() io.Writer    { return &f.out }
func (f *fakeStack) StartTime() time.Time { return f.start }

func TestPrintPopsInOrderAndWritesStdout(t *testing.T) {
	s := newFakeStack(value.String("a"), value.String("b"))
	b, _ := Resolve("print")
	if err := b.Call(s, 2); err != nil {
		t.Fatal(err)
	}
	if s.out.String() != "ab" {
		t.Errorf("stdout = %q, want %q", s.out.String(), "ab")
	}
}

func TestPrintlnAppendsNewline(t *testing.T) {
	s := newFakeStack(value.String("hi"))
	b, _ := Resolve("println")
	if err := b.Call(s, 1); err != nil {
		t.Fatal(err)
	}
	if s.out.String() != "hi\n" {
		t.Errorf("stdout = %q", s.out.String())
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want value.Value
	}{
		{"nil", value.Nil},
		{"true", value.True},
		{"false", value.False},
		{"3.5", value.Number(3.5)},
	}
	for _, c := range cases {
		s := newFakeStack(value.String(c.in))
		b, _ := Resolve("parse")
		if err := b.Call(s, 1); err != nil {
			t.Fatalf("parse(%q): %v", c.in, err)
		}
		got, _ := s.Pop()
		if !value.Equal(got, c.want) {
			t.Errorf("parse(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestTypeOf(t *testing.T) {
	s := newFakeStack(value.Number(1))
	b, _ := Resolve("type_of")
	if err := b.Call(s, 1); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Pop()
	if got != value.String("number") {
		t.Errorf("type_of(1) = %v", got)
	}
}

func TestDivByZero(t *testing.T) {
	s := newFakeStack(value.Number(1), value.Number(0))
	b, _ := Resolve("div")
	if err := b.Call(s, 2); err == nil {
		t.Fatal("expected division by zero error")
	}
}

func TestIsPredicates(t *testing.T) {
	s := newFakeStack(value.Nil)
	b, _ := Resolve("is_nil")
	if err := b.Call(s, 1); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Pop()
	if got != value.True {
		t.Errorf("is_nil(nil) = %v, want true", got)
	}
}
