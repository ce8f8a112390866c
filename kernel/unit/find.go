package unit

import "strconv"

// Find implements §4.3 path lookup. An empty path returns u itself.
func Find(path []string, u Unit) (Unit, bool) {
	if len(path) == 0 {
		return u, true
	}
	seg := path[0]
	rest := path[1:]

	switch v := u.(type) {
	case Map:
		if seg == "all" {
			return v, true
		}
		if val, ok := v.Get(seg); ok {
			return Find(rest, val)
		}
		return nil, false
	case List:
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 && idx < len(v) {
			return Find(rest, v[idx])
		}
		return nil, false
	case Pair:
		switch seg {
		case "0":
			return Find(rest, v.First)
		case "1":
			return Find(rest, v.Second)
		}
		return nil, false
	default:
		return nil, false
	}
}

// FindRef is Find keyed by a Ref unit.
func FindRef(r Ref, u Unit) (Unit, bool) {
	return Find([]string(r), u)
}
