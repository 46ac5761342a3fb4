package store

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/roach88/crudkit/internal/querysql"
	"github.com/roach88/crudkit/internal/value"
)

// encodeColumn converts a value to a driver argument for column c.
// JSON columns accept any value and store its JSON text.
func encodeColumn(c Column, v value.Value) (any, error) {
	if value.IsNull(v) {
		return nil, nil
	}
	if c.Kind == KindJSON {
		data, err := value.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		return string(data), nil
	}
	if !Fits(c.Kind, v) {
		return nil, fmt.Errorf("column %q: %s value does not fit %s column", c.Name, value.TypeName(v), c.Kind)
	}
	arg, err := querysql.Param(v)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", c.Name, err)
	}
	return arg, nil
}

// Fits reports whether v can be stored in a column of kind k.
// Null fits every kind.
func Fits(k Kind, v value.Value) bool {
	if value.IsNull(v) {
		return true
	}
	switch k {
	case KindString:
		_, ok := v.(value.String)
		return ok
	case KindTime:
		s, ok := v.(value.String)
		if !ok {
			return false
		}
		_, err := time.Parse(time.RFC3339Nano, string(s))
		return err == nil
	case KindInt:
		_, err := value.AsInt(v)
		return err == nil
	case KindFloat:
		_, err := value.AsFloat(v)
		return err == nil
	case KindBool:
		_, ok := v.(value.Bool)
		return ok
	case KindJSON:
		return true
	default:
		return false
	}
}

// decodeColumn converts a scanned driver value back to a value of c's kind.
func decodeColumn(c Column, raw any) (value.Value, error) {
	if raw == nil {
		return value.Null{}, nil
	}

	switch c.Kind {
	case KindString:
		return value.String(rawText(raw)), nil

	case KindTime:
		if t, ok := raw.(time.Time); ok {
			return value.String(t.UTC().Format(time.RFC3339Nano)), nil
		}
		return value.String(rawText(raw)), nil

	case KindInt:
		switch n := raw.(type) {
		case int64:
			return value.Int(n), nil
		case float64:
			if n == math.Trunc(n) {
				return value.Int(int64(n)), nil
			}
		case string, []byte:
			if i, err := strconv.ParseInt(rawText(raw), 10, 64); err == nil {
				return value.Int(i), nil
			}
		}

	case KindFloat:
		switch n := raw.(type) {
		case float64:
			return value.Float(n), nil
		case int64:
			return value.Float(float64(n)), nil
		case string, []byte:
			if f, err := strconv.ParseFloat(rawText(raw), 64); err == nil {
				return value.Float(f), nil
			}
		}

	case KindBool:
		switch b := raw.(type) {
		case bool:
			return value.Bool(b), nil
		case int64:
			return value.Bool(b != 0), nil
		}

	case KindJSON:
		v, err := value.Decode([]byte(rawText(raw)))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		if v == nil {
			return value.Null{}, nil
		}
		return v, nil
	}

	return nil, fmt.Errorf("column %q: cannot decode %T as %s", c.Name, raw, c.Kind)
}

func rawText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
