package value

// typeRank fixes the cross-type ordering used by Compare: Nil < Number <
// String < Function. Bool and EnumOption share a last rank above Function.
func typeRank(v Value) int {
	switch v.(type) {
	case NilType:
		return 0
	case Number:
		return 1
	case String:
		return 2
	case *Function:
		return 3
	default:
		return 4
	}
}

// Equal reports whether x and y are the same value. Equality is total but
// never crosses variants: a Number is never equal to a String, even when
// their textual forms match, and two distinct Function values are never
// equal to each other.
func Equal(x, y Value) bool {
	switch xv := x.(type) {
	case NilType:
		_, ok := y.(NilType)
		return ok
	case Bool:
		yv, ok := y.(Bool)
		return ok && xv == yv
	case Number:
		yv, ok := y.(Number)
		return ok && xv == yv
	case String:
		yv, ok := y.(String)
		return ok && xv == yv
	case *Function:
		yv, ok := y.(*Function)
		return ok && xv == yv
	case EnumOption:
		yv, ok := y.(EnumOption)
		return ok && xv.Equal(yv)
	default:
		return false
	}
}

// Compare orders x and y. Within a variant it uses the variant's natural
// order (numeric, lexicographic). Across variants it falls back to the
// fixed type-rank order. Values of the same rank with no natural order
// (two Functions, two Bools, two EnumOptions) compare as 0 even when
// Equal is false — callers that need a strict order must check Equal
// first.
func Compare(x, y Value) int {
	rx, ry := typeRank(x), typeRank(y)
	if rx != ry {
		if rx < ry {
			return -1
		}
		return 1
	}
	switch xv := x.(type) {
	case Number:
		yv := y.(Number)
		switch {
		case xv < yv:
			return -1
		case xv > yv:
			return 1
		default:
			return 0
		}
	case String:
		yv := y.(String)
		switch {
		case xv < yv:
			return -1
		case xv > yv:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}
