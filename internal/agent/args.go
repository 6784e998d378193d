package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"nexo_bot/internal/sheets"
	"nexo_bot/internal/shop"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var errInvalidArgs = errors.New("argumentos inválidos")

var validate = validator.New()

func init() {
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("arg"); name != "" {
			return name
		}
		return f.Name
	})
}

// validateArgs runs the struct tags and reports failures by argument name.
func validateArgs(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, "falta "+fe.Field())
		default:
			parts = append(parts, fmt.Sprintf("%s inválido (%s)", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", errInvalidArgs, strings.Join(parts, ", "))
}

func getStringArg(args map[string]any, key string) (string, bool) {
	value, ok := args[key]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

func getIntArg(args map[string]any, key string, fallback int) int {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return int(parsed)
		}
	case string:
		s := strings.TrimSpace(v)
		if parsed, err := strconv.Atoi(s); err == nil {
			return parsed
		}
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return int(parsed)
		}
	}
	return fallback
}

// getOptionalIntArg distinguishes an absent value from zero.
func getOptionalIntArg(args map[string]any, key string) *int {
	if _, ok := args[key]; !ok {
		return nil
	}
	const sentinel = -1 << 31
	n := getIntArg(args, key, sentinel)
	if n == sentinel {
		return nil
	}
	return &n
}

func getDecimalArg(args map[string]any, key string) (decimal.Decimal, bool) {
	value, ok := args[key]
	if !ok || value == nil {
		return decimal.Zero, false
	}
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := shop.ParseMoney(v)
		return d, err == nil
	}
	return decimal.Zero, false
}

// getBoolArg accepts real booleans and the stringified forms models emit.
func getBoolArg(args map[string]any, key string) (value bool, ok bool) {
	raw, present := args[key]
	if !present || raw == nil {
		return false, false
	}
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch sheets.Normalize(v) {
		case "true", "si", "yes", "1", "pagado":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	case float64:
		return v != 0, true
	}
	return false, false
}

// getListArg accepts a JSON array, a JSON-encoded array string or a single
// object.
func getListArg(args map[string]any, key string) ([]map[string]any, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	if s, isString := raw.(string); isString {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("%w: %s no es una lista", errInvalidArgs, key)
		}
		raw = decoded
	}
	switch v := raw.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			m, isMap := item.(map[string]any)
			if !isMap {
				return nil, fmt.Errorf("%w: %s contiene un elemento inválido", errInvalidArgs, key)
			}
			out = append(out, m)
		}
		return out, nil
	case map[string]any:
		return []map[string]any{v}, nil
	}
	return nil, fmt.Errorf("%w: %s no es una lista", errInvalidArgs, key)
}

// cloneArgs deep-copies the JSON-shaped argument map.
func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneArgs(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// setSlot writes value at a dotted path such as "items.1.producto". List
// arguments encoded as strings are decoded first.
func setSlot(args map[string]any, slot string, value string) error {
	parts := strings.Split(slot, ".")
	var cur any = args
	for i, part := range parts {
		last := i == len(parts)-1
		switch node := cur.(type) {
		case map[string]any:
			if last {
				node[part] = value
				return nil
			}
			next := node[part]
			if s, isString := next.(string); isString {
				var decoded any
				if err := json.Unmarshal([]byte(s), &decoded); err != nil {
					return fmt.Errorf("%w: %s", errInvalidArgs, slot)
				}
				node[part] = decoded
				next = decoded
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return fmt.Errorf("%w: %s", errInvalidArgs, slot)
			}
			if last {
				node[idx] = value
				return nil
			}
			cur = node[idx]
		default:
			return fmt.Errorf("%w: %s", errInvalidArgs, slot)
		}
	}
	return nil
}
