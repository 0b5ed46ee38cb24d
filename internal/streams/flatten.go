package streams

// Flatten collapses nested objects into a single-level record, joining key
// segments with underscores. Arrays and scalars are copied as-is; only
// nested objects unfold.
func Flatten(record map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(record))
	flattenInto(out, "", record)
	return out
}

func flattenInto(out map[string]interface{}, prefix string, value map[string]interface{}) {
	for key, v := range value {
		name := key
		if prefix != "" {
			name = prefix + "_" + key
		}

		if nested, ok := v.(map[string]interface{}); ok {
			flattenInto(out, name, nested)
			continue
		}
		out[name] = v
	}
}
