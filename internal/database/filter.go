package database

import (
	"bytes"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// compileFilter encodes filter once so it can be evaluated against many documents.
// An empty filter compiles to nil and matches everything.
func compileFilter(filter FilterQuery) (bson.Raw, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	return bson.Marshal(filter)
}

// matchFilter evaluates the subset of the MongoDB query language MemoryStore supports:
// equality, $eq $ne $gt $gte $lt $lte $in $nin $exists, and $and $or $nor.
func matchFilter(doc, filter bson.Raw) (bool, error) {
	if filter == nil {
		return true, nil
	}
	elems, err := filter.Elements()
	if err != nil {
		return false, err
	}
	for _, e := range elems {
		key, cond := e.Key(), e.Value()
		var ok bool
		switch key {
		case "$and", "$or", "$nor":
			ok, err = matchLogical(doc, key, cond)
		default:
			if strings.HasPrefix(key, "$") {
				return false, fmt.Errorf("unsupported query operator %q", key)
			}
			ok, err = matchField(doc, key, cond)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchLogical(doc bson.Raw, op string, cond bson.RawValue) (bool, error) {
	arr, ok := cond.ArrayOK()
	if !ok {
		return false, fmt.Errorf("%s expects an array", op)
	}
	vals, err := arr.Values()
	if err != nil {
		return false, err
	}
	if len(vals) == 0 {
		return false, fmt.Errorf("%s argument must be a nonempty array", op)
	}
	matched := false
	for _, v := range vals {
		sub, ok := v.DocumentOK()
		if !ok {
			return false, fmt.Errorf("%s entries must be documents", op)
		}
		m, err := matchFilter(doc, sub)
		if err != nil {
			return false, err
		}
		if op == "$and" && !m {
			return false, nil
		}
		matched = matched || m
	}
	switch op {
	case "$and":
		return true, nil
	case "$or":
		return matched, nil
	}
	return !matched, nil
}

func matchField(doc bson.Raw, key string, cond bson.RawValue) (bool, error) {
	fv, lookupErr := doc.LookupErr(strings.Split(key, ".")...)
	present := lookupErr == nil

	ops, isOps := operatorDoc(cond)
	if !isOps {
		return valueMatches(fv, present, cond), nil
	}
	for _, op := range ops {
		want := op.Value()
		var ok bool
		switch op.Key() {
		case "$eq":
			ok = valueMatches(fv, present, want)
		case "$ne":
			ok = !valueMatches(fv, present, want)
		case "$gt", "$gte", "$lt", "$lte":
			if !present {
				break
			}
			c, comparable := compareValues(fv, want)
			if !comparable {
				break
			}
			switch op.Key() {
			case "$gt":
				ok = c > 0
			case "$gte":
				ok = c >= 0
			case "$lt":
				ok = c < 0
			default:
				ok = c <= 0
			}
		case "$in", "$nin":
			arr, isArr := want.ArrayOK()
			if !isArr {
				return false, fmt.Errorf("%s expects an array", op.Key())
			}
			vals, err := arr.Values()
			if err != nil {
				return false, err
			}
			for _, v := range vals {
				if valueMatches(fv, present, v) {
					ok = true
					break
				}
			}
			if op.Key() == "$nin" {
				ok = !ok
			}
		case "$exists":
			ok = present == truthy(want)
		default:
			return false, fmt.Errorf("unsupported query operator %q", op.Key())
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// operatorDoc returns the elements of cond when it is an operator document such as {"$gt": 1}.
func operatorDoc(cond bson.RawValue) ([]bson.RawElement, bool) {
	sub, ok := cond.DocumentOK()
	if !ok {
		return nil, false
	}
	elems, err := sub.Elements()
	if err != nil || len(elems) == 0 || !strings.HasPrefix(elems[0].Key(), "$") {
		return nil, false
	}
	return elems, true
}

// valueMatches mirrors MongoDB equality: a missing field equals null and an array
// field matches when any element does.
func valueMatches(fv bson.RawValue, present bool, want bson.RawValue) bool {
	if !present {
		return want.Type == bsontype.Null
	}
	if fv.Type == bsontype.Array && want.Type != bsontype.Array {
		vals, err := fv.Array().Values()
		if err != nil {
			return false
		}
		for _, v := range vals {
			if equalValues(v, want) {
				return true
			}
		}
		return false
	}
	return equalValues(fv, want)
}

func equalValues(a, b bson.RawValue) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return a.Equal(b)
}

// compareValues orders two values of the same BSON family. Numbers compare across
// int32, int64 and double.
func compareValues(a, b bson.RawValue) (int, bool) {
	if af, ok := number(a); ok {
		bf, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	switch a.Type {
	case bsontype.String:
		bs, ok := b.StringValueOK()
		if !ok {
			return 0, false
		}
		return strings.Compare(a.StringValue(), bs), true
	case bsontype.ObjectID:
		bo, ok := b.ObjectIDOK()
		if !ok {
			return 0, false
		}
		ao := a.ObjectID()
		return bytes.Compare(ao[:], bo[:]), true
	case bsontype.DateTime:
		bt, ok := b.DateTimeOK()
		if !ok {
			return 0, false
		}
		at := a.DateTime()
		switch {
		case at < bt:
			return -1, true
		case at > bt:
			return 1, true
		}
		return 0, true
	case bsontype.Boolean:
		bb, ok := b.BooleanOK()
		if !ok {
			return 0, false
		}
		ab := a.Boolean()
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func number(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bsontype.Int32:
		return float64(v.Int32()), true
	case bsontype.Int64:
		return float64(v.Int64()), true
	case bsontype.Double:
		return v.Double(), true
	}
	return 0, false
}

func truthy(v bson.RawValue) bool {
	if b, ok := v.BooleanOK(); ok {
		return b
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	return v.Type != bsontype.Null && v.Type != bsontype.Undefined
}
