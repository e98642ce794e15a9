package database

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrImmutableID is returned when an update tries to change _id.
var ErrImmutableID = errors.New("performing an update on the path '_id' would modify the immutable field '_id'")

// ErrUpdateConflict is returned when two update paths touch the same field.
var ErrUpdateConflict = errors.New("update paths conflict")

type fieldChange struct {
	op    string
	path  string
	value any
}

// applyUpdate runs $set, $unset and $inc against doc and returns the new encoding.
// Paths must not overlap, so the outcome does not depend on operator order.
func applyUpdate(doc bson.Raw, update UpdateQuery) (bson.Raw, error) {
	var d bson.D
	if err := bson.Unmarshal(doc, &d); err != nil {
		return nil, err
	}
	changes, err := collectChanges(update)
	if err != nil {
		return nil, err
	}
	for _, c := range changes {
		keys := strings.Split(c.path, ".")
		if keys[0] == "_id" {
			// setting _id to the value it already has is a no-op
			cur, _ := getPath(d, keys)
			if c.op != "$set" || len(keys) > 1 || !sameValue(cur, c.value) {
				return nil, ErrImmutableID
			}
			continue
		}
		switch c.op {
		case "$set":
			d, err = setPath(d, keys, c.value)
		case "$unset":
			d = unsetPath(d, keys)
		case "$inc":
			cur, _ := getPath(d, keys)
			var sum any
			if sum, err = addNumbers(cur, c.value); err == nil {
				d, err = setPath(d, keys, sum)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return bson.Marshal(d)
}

// collectChanges flattens the operator documents into a sorted change list and
// rejects unknown operators and overlapping paths.
func collectChanges(update UpdateQuery) ([]fieldChange, error) {
	ops, err := normalizeUpdate(update)
	if err != nil {
		return nil, err
	}
	var changes []fieldChange
	for op, arg := range ops {
		switch op {
		case "$set", "$unset", "$inc":
		default:
			return nil, fmt.Errorf("unsupported update operator %q", op)
		}
		fields, err := toM(arg)
		if err != nil {
			return nil, fmt.Errorf("%s %w", op, err)
		}
		for path, v := range fields {
			changes = append(changes, fieldChange{op: op, path: path, value: v})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].path < changes[j].path })
	for i := range changes {
		for j := i + 1; j < len(changes); j++ {
			if pathsOverlap(changes[i].path, changes[j].path) {
				return nil, fmt.Errorf("%w: updating the path '%s' would create a conflict at '%s'",
					ErrUpdateConflict, changes[j].path, changes[i].path)
			}
		}
	}
	return changes, nil
}

func pathsOverlap(a, b string) bool {
	return a == b || strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}

// sameValue compares two values by their BSON encoding.
func sameValue(a, b any) bool {
	ra, err := bson.Marshal(bson.D{{Key: "v", Value: a}})
	if err != nil {
		return false
	}
	rb, err := bson.Marshal(bson.D{{Key: "v", Value: b}})
	if err != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

func getPath(d bson.D, keys []string) (any, bool) {
	for i, e := range d {
		if e.Key != keys[0] {
			continue
		}
		if len(keys) == 1 {
			return d[i].Value, true
		}
		child, ok := e.Value.(bson.D)
		if !ok {
			return nil, false
		}
		return getPath(child, keys[1:])
	}
	return nil, false
}

func setPath(d bson.D, keys []string, v any) (bson.D, error) {
	for i, e := range d {
		if e.Key != keys[0] {
			continue
		}
		if len(keys) == 1 {
			d[i].Value = v
			return d, nil
		}
		child, ok := e.Value.(bson.D)
		if !ok {
			return nil, fmt.Errorf("cannot create field %q in element {%s: %v}", keys[1], e.Key, e.Value)
		}
		child, err := setPath(child, keys[1:], v)
		if err != nil {
			return nil, err
		}
		d[i].Value = child
		return d, nil
	}
	if len(keys) == 1 {
		return append(d, bson.E{Key: keys[0], Value: v}), nil
	}
	child, err := setPath(bson.D{}, keys[1:], v)
	if err != nil {
		return nil, err
	}
	return append(d, bson.E{Key: keys[0], Value: child}), nil
}

func unsetPath(d bson.D, keys []string) bson.D {
	for i, e := range d {
		if e.Key != keys[0] {
			continue
		}
		if len(keys) == 1 {
			return append(d[:i:i], d[i+1:]...)
		}
		if child, ok := e.Value.(bson.D); ok {
			d[i].Value = unsetPath(child, keys[1:])
		}
		return d
	}
	return d
}

// addNumbers implements $inc. Integer sums stay integers; a missing field counts as zero.
func addNumbers(cur, delta any) (any, error) {
	if cur == nil {
		cur = int32(0)
	}
	ci, curInt := toInt64(cur)
	di, deltaInt := toInt64(delta)
	if curInt && deltaInt {
		sum := ci + di
		if _, ok := cur.(int32); ok && sum >= math.MinInt32 && sum <= math.MaxInt32 {
			return int32(sum), nil
		}
		return sum, nil
	}
	cf, ok := toFloat64(cur)
	if !ok {
		return nil, fmt.Errorf("cannot apply $inc to a value of non-numeric type %T", cur)
	}
	df, ok := toFloat64(delta)
	if !ok {
		return nil, fmt.Errorf("cannot increment with non-numeric argument %T", delta)
	}
	return cf + df, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
