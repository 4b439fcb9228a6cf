package relay

import "strconv"

// Station management APIs return loosely shaped envelopes, so responses are
// decoded into generic maps and picked apart with the helpers below.

func asObject(v any) map[string]any {
	obj, _ := v.(map[string]any)
	return obj
}

func asArray(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

func objString(obj map[string]any, key string) (string, bool) {
	if obj == nil {
		return "", false
	}
	s, ok := obj[key].(string)
	return s, ok
}

func objInt(obj map[string]any, key string) (int64, bool) {
	if obj == nil {
		return 0, false
	}
	switch n := obj[key].(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func objBool(obj map[string]any, key string) (bool, bool) {
	if obj == nil {
		return false, false
	}
	b, ok := obj[key].(bool)
	return b, ok
}

func objValue(obj map[string]any, key string) any {
	if obj == nil {
		return nil
	}
	return obj[key]
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
