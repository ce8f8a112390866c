package registry

import "vnix/kernel/unit"

// ResolveMeta implements the help meta-protocol of §4.5: before invoking a
// handler, the dispatcher asks whether payload requests help text or the
// service list instead of normal dispatch.
func ResolveMeta(payload unit.Unit, help string, allNames []string) (reply unit.Unit, resolved bool) {
	keyword, ok := metaKeyword(payload)
	if !ok {
		return nil, false
	}
	switch keyword {
	case "info", "help":
		return unit.Map{{Key: unit.Str("msg"), Value: unit.Str(help)}}, true
	case "serv":
		names := make(unit.List, len(allNames))
		for i, n := range allNames {
			names[i] = unit.Str(n)
		}
		return unit.Map{{Key: unit.Str("msg"), Value: names}}, true
	}
	return nil, false
}

// metaKeyword extracts the candidate meta-protocol string: either payload
// itself is a Str, or payload is a Map with a "help" entry whose value is
// a Str. Any string is returned; ResolveMeta decides whether it is one of
// "info", "help" or "serv".
func metaKeyword(payload unit.Unit) (string, bool) {
	if s, ok := payload.(unit.Str); ok {
		return string(s), true
	}
	if m, ok := payload.(unit.Map); ok {
		if v, found := m.Get("help"); found {
			if s, ok := v.(unit.Str); ok {
				return string(s), true
			}
		}
	}
	return "", false
}
