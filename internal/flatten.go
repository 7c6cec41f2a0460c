package internal

import (
	"encoding/json"
	"strconv"
)

// FlattenPayload decodes a JSON object and returns its leaves keyed by path.
// Object keys are joined with "." and array elements use "[i]", so
// {"pull_request":{"labels":[{"name":"wip"}]}} yields
// "pull_request.labels[0].name". Arrays are also kept whole under their own
// path. Anything that is not a JSON object yields an empty map.
func FlattenPayload(raw []byte) map[string]interface{} {
	out := make(map[string]interface{})
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out
	}
	for key, value := range doc {
		walk(out, key, value)
	}
	return out
}

func walk(out map[string]interface{}, path string, value interface{}) {
	switch typed := value.(type) {
	case map[string]interface{}:
		for key, child := range typed {
			walk(out, path+"."+key, child)
		}
	case []interface{}:
		out[path] = typed
		for i, child := range typed {
			walk(out, path+"["+strconv.Itoa(i)+"]", child)
		}
	default:
		out[path] = value
	}
}
