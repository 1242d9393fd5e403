package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MalithGihan/flownodes/pkg/types"
)

// Stringify turns an arbitrary result value into the string stored in a
// node's value field. Strings pass through; everything else is JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func asString(name string, v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64, int, bool:
		return fmt.Sprint(x), nil
	}
	return "", invalid(KindInvalidField, "field %q wants a string, got %T", name, v)
}

func asInt(name string, v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, invalid(KindInvalidField, "field %q wants an integer, got %v", name, x)
		}
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, invalid(KindInvalidField, "field %q wants an integer, got %q", name, x)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, invalid(KindInvalidField, "field %q wants an integer, got %q", name, x)
		}
		return n, nil
	}
	return 0, invalid(KindInvalidField, "field %q wants an integer, got %T", name, v)
}

func asBool(name string, v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, invalid(KindInvalidField, "field %q wants a boolean, got %q", name, x)
		}
		return b, nil
	}
	return false, invalid(KindInvalidField, "field %q wants a boolean, got %T", name, v)
}

// asMessages accepts typed messages or their decoded JSON form.
func asMessages(name string, v any) ([]types.Message, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []types.Message:
		return append([]types.Message(nil), x...), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, invalid(KindInvalidField, "field %q: %v", name, err)
	}
	var out []types.Message
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, invalid(KindInvalidField, "field %q wants a list of messages", name)
	}
	return out, nil
}
