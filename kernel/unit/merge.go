package unit

// Merge implements §4.3 structural merge: overlay wins, base supplies
// whatever overlay doesn't touch.
func Merge(base, overlay Unit) Unit {
	if p, ok := overlay.(Pair); ok {
		// A Pair whose first element is a key is a one-entry Map in disguise.
		oneEntry := Map{MapEntry{Key: p.First, Value: p.Second}}
		return Merge(base, oneEntry)
	}

	baseMap, baseIsMap := base.(Map)
	overlayMap, overlayIsMap := overlay.(Map)
	if baseIsMap && overlayIsMap {
		return mergeMaps(baseMap, overlayMap)
	}

	if _, baseIsList := base.(List); baseIsList {
		if _, overlayIsList := overlay.(List); overlayIsList {
			return overlay
		}
	}

	return overlay
}

func mergeMaps(base, overlay Map) Map {
	out := make(Map, 0, len(base)+len(overlay))
	out = append(out, base...)
	for _, oe := range overlay {
		key, ok := oe.Key.(Str)
		if !ok {
			out = append(out, oe)
			continue
		}
		found := false
		for i, be := range out {
			if bk, ok := be.Key.(Str); ok && bk == key {
				out[i] = MapEntry{Key: be.Key, Value: Merge(be.Value, oe.Value)}
				found = true
				break
			}
		}
		if !found {
			out = append(out, oe)
		}
	}
	return out
}

// MergeRef implements §4.3 merge_ref: it overlays value at path inside root,
// constructing the spine of nested Maps as needed.
func MergeRef(path []string, value Unit, root Unit) Unit {
	return Merge(root, buildSpine(path, value))
}

func buildSpine(path []string, value Unit) Unit {
	if len(path) == 0 {
		return value
	}
	return Map{MapEntry{Key: Str(path[0]), Value: buildSpine(path[1:], value)}}
}
