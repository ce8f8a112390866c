package unit

// Size walks u and sums per-variant byte contributions, the accounting used
// by the store size protocol (§4.3, §4.9). It approximates the cost of the
// binary encoding rather than re-running it, so it stays cheap to call on
// every store mutation.
func Size(u Unit) int {
	switch v := u.(type) {
	case None:
		return 1
	case Bool:
		return 2
	case Byte:
		return 2
	case Int:
		switch v.repr {
		case IntI32, IntU32:
			return 5
		default:
			return 6 + len(v.big.Bytes())
		}
	case Dec:
		switch v.repr {
		case DecF32:
			return 5
		default:
			return 12 + len(v.rat.Num().Bytes()) + len(v.rat.Denom().Bytes())
		}
	case Str:
		return 5 + len(string(v))
	case Ref:
		n := 5
		for _, s := range v {
			n += len(s) + 1
		}
		return n
	case Pair:
		return 1 + Size(v.First) + Size(v.Second)
	case List:
		n := 5
		for _, e := range v {
			n += Size(e)
		}
		return n
	case Map:
		n := 5
		for _, e := range v {
			n += Size(e.Key) + Size(e.Value)
		}
		return n
	case Stream:
		n := 1 + Size(v.Inner) + 5 + len(v.Service)
		if v.Addr.Remote {
			n += 17
		} else {
			n++
		}
		return n
	default:
		return 1
	}
}
