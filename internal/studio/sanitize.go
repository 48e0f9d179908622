package studio

import "encoding/json"

// binaryMarker tags a JSON object as decoded binary media. The studio editor
// attaches such objects (audio buffers, album art) to a project's config and
// script while editing; they cannot be persisted and must not reach either
// store.
const binaryMarker = "__binary__"

// SanitizeProject returns a copy of p with raw binary media stripped from
// its opaque payloads. Objects carrying the binary marker are removed
// wherever they appear; arrays drop stripped elements instead of keeping
// empty slots. Everything else round-trips byte for byte: payloads that
// contain no binary media are returned unmodified, not re-encoded. Rendered
// video files are unaffected — they live in the media vault, referenced from
// the queue by checksum.
func SanitizeProject(p *Project) *Project {
	out := p.Clone()
	out.Config = sanitizeRaw(out.Config)
	out.Script = sanitizeRaw(out.Script)
	return out
}

func sanitizeRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		// Not JSON we can inspect; store as-is.
		return raw
	}
	clean, drop, changed := sanitizeValue(v)
	if drop {
		return nil
	}
	if !changed {
		return raw
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return raw
	}
	return data
}

// sanitizeValue walks a decoded JSON value. drop means the value itself is
// binary media and must be removed by the parent; changed means something
// below it was removed and the subtree needs re-encoding.
func sanitizeValue(v any) (out any, drop bool, changed bool) {
	switch val := v.(type) {
	case map[string]any:
		if isBinary(val) {
			return nil, true, true
		}
		for k, child := range val {
			clean, childDrop, childChanged := sanitizeValue(child)
			if childDrop {
				delete(val, k)
				changed = true
				continue
			}
			if childChanged {
				val[k] = clean
				changed = true
			}
		}
		return val, false, changed
	case []any:
		kept := val[:0]
		for _, child := range val {
			clean, childDrop, childChanged := sanitizeValue(child)
			if childDrop {
				changed = true
				continue
			}
			if childChanged {
				changed = true
			}
			kept = append(kept, clean)
		}
		return kept, false, changed
	default:
		return v, false, false
	}
}

func isBinary(m map[string]any) bool {
	marked, ok := m[binaryMarker].(bool)
	return ok && marked
}
