package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"modelgraph/internal/model"
	"modelgraph/internal/schemaerr"
	"modelgraph/internal/typeclass"
)

// CollectionSeparator joins collection elements in their text column.
const CollectionSeparator = ","

// coerceValue converts a scanned driver value to the Go value the GraphQL
// layer serves for f. Drivers differ: MySQL returns []byte for most types,
// SQLite returns int64 for booleans.
func coerceValue(f *model.Field, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	if f.Class.Kind == typeclass.FilterCollection {
		text, err := asText(raw)
		if err != nil {
			return nil, columnError(f, raw, err)
		}
		out := []interface{}{}
		if text == "" {
			return out, nil
		}
		for _, part := range strings.Split(text, CollectionSeparator) {
			v, err := coerceScalar(f.Class.Base.Kind, part)
			if err != nil {
				return nil, columnError(f, raw, err)
			}
			out = append(out, v)
		}
		return out, nil
	}

	v, err := coerceScalar(f.Class.Base.Kind, raw)
	if err != nil {
		return nil, columnError(f, raw, err)
	}
	return v, nil
}

func columnError(f *model.Field, raw interface{}, err error) error {
	return schemaerr.Wrap(schemaerr.KindData, err, fmt.Sprintf("column %s (%T)", f.Column, raw))
}

func coerceScalar(kind typeclass.Kind, raw interface{}) (interface{}, error) {
	switch kind {
	case typeclass.KindBool:
		return asBool(raw)
	case typeclass.KindInt:
		return asInt(raw)
	case typeclass.KindFloat:
		return asFloat(raw)
	case typeclass.KindString:
		return asText(raw)
	}
	return nil, fmt.Errorf("no conversion to %s", kind)
}

func asText(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	case int64, int, float64, bool:
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("cannot read %T as text", raw)
}

func asInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int", v)
		}
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not integral", v)
		}
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseInt(string(v))
	case string:
		return parseInt(v)
	}
	return 0, fmt.Errorf("cannot read %T as int", raw)
}

func parseInt(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func asFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, fmt.Errorf("cannot read %T as float", raw)
}

func asBool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(v)))
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	}
	return false, fmt.Errorf("cannot read %T as bool", raw)
}

// EncodeCollection joins collection elements into their text column form.
func EncodeCollection(values []interface{}) (string, error) {
	parts := make([]string, len(values))
	for i, v := range values {
		text, err := asText(v)
		if err != nil {
			return "", err
		}
		if strings.Contains(text, CollectionSeparator) {
			return "", schemaerr.Dataf("collection element %q contains %q", text, CollectionSeparator)
		}
		parts[i] = text
	}
	return strings.Join(parts, CollectionSeparator), nil
}
