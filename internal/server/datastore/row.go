package datastore

import (
	"fmt"
	"strconv"
	"time"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Text returns col as a string. NULL and missing columns yield "".
func (r Row) Text(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns col as an int64.
func (r Row) Int64(col string) (int64, error) {
	switch v := r[col].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, fmt.Errorf("column %q is null", col)
	default:
		return 0, fmt.Errorf("column %q: unexpected type %T", col, v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Time returns col as a time.Time. NULL yields the zero time.
func (r Row) Time(col string) (time.Time, error) {
	switch v := r[col].(type) {
	case time.Time:
		return v, nil
	case nil:
		return time.Time{}, nil
	case []byte:
		return parseTime(col, string(v))
	case string:
		return parseTime(col, v)
	default:
		return time.Time{}, fmt.Errorf("column %q: unexpected type %T", col, v)
	}
}

func parseTime(col, s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("column %q: unparseable time %q", col, s)
}
