package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/absql/internal/ir"
)

// columnKind is how raw bytes from a column are decoded.
type columnKind int

const (
	kindText columnKind = iota
	kindInt
	kindFloat
)

// kindOf maps a database type name to the decoding for raw bytes.
// Unknown and textual types stay strings.
func kindOf(ct *sql.ColumnType) columnKind {
	name := strings.ToUpper(ct.DatabaseTypeName())
	switch {
	case strings.Contains(name, "INT"):
		return kindInt
	case name == "FLOAT", name == "DOUBLE", name == "REAL",
		strings.HasPrefix(name, "FLOAT"), strings.HasPrefix(name, "DOUBLE"):
		return kindFloat
	default:
		return kindText
	}
}

// unmarshalValue converts a scanned driver value into an ir.Value.
func unmarshalValue(v any, kind columnKind) (ir.Value, error) {
	if val, ok := v.([]byte); ok {
		switch kind {
		case kindInt:
			n, err := strconv.ParseInt(string(val), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unmarshal integer %q: %w", val, err)
			}
			return ir.Int(n), nil
		case kindFloat:
			f, err := strconv.ParseFloat(string(val), 64)
			if err != nil {
				return nil, fmt.Errorf("unmarshal float %q: %w", val, err)
			}
			return ir.FromAny(f)
		}
	}
	return ir.FromAny(v)
}

// marshalValue converts an ir.Value to a driver argument for writes.
// Arrays and objects are stored as canonical JSON text.
func marshalValue(v ir.Value) (any, error) {
	switch v.(type) {
	case ir.Array, ir.Object:
		data, err := ir.MarshalCanonical(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", ir.Kind(v), err)
		}
		return string(data), nil
	}
	return ir.ToDriver(v)
}
