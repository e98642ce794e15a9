package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func mustRaw(t *testing.T, v any) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestMatchFilter(t *testing.T) {
	doc := mustRaw(t, bson.D{
		{Key: "name", Value: "alice"},
		{Key: "age", Value: int32(30)},
		{Key: "score", Value: 4.5},
		{Key: "tags", Value: bson.A{"a", "b"}},
		{Key: "profile", Value: bson.D{{Key: "city", Value: "Paris"}}},
	})

	cases := []struct {
		name   string
		filter FilterQuery
		want   bool
	}{
		{"empty", FilterQuery{}, true},
		{"equal", FilterQuery{"name": "alice"}, true},
		{"not equal", FilterQuery{"name": "bob"}, false},
		{"int vs int64", FilterQuery{"age": int64(30)}, true},
		{"dotted path", FilterQuery{"profile.city": "Paris"}, true},
		{"array element", FilterQuery{"tags": "b"}, true},
		{"missing equals null", FilterQuery{"nickname": nil}, true},
		{"gt", FilterQuery{"age": bson.M{"$gt": 29}}, true},
		{"range", FilterQuery{"age": bson.M{"$gte": 30, "$lt": 31}}, true},
		{"lte fails", FilterQuery{"score": bson.M{"$lte": 4}}, false},
		{"in", FilterQuery{"name": bson.M{"$in": bson.A{"bob", "alice"}}}, true},
		{"nin", FilterQuery{"name": bson.M{"$nin": bson.A{"alice"}}}, false},
		{"ne", FilterQuery{"name": bson.M{"$ne": "bob"}}, true},
		{"exists", FilterQuery{"profile": bson.M{"$exists": true}}, true},
		{"not exists", FilterQuery{"nickname": bson.M{"$exists": false}}, true},
		{"or", FilterQuery{"$or": bson.A{bson.M{"name": "bob"}, bson.M{"age": 30}}}, true},
		{"and", FilterQuery{"$and": bson.A{bson.M{"name": "alice"}, bson.M{"age": 31}}}, false},
		{"nor", FilterQuery{"$nor": bson.A{bson.M{"name": "bob"}}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := compileFilter(tc.filter)
			require.NoError(t, err)
			got, err := matchFilter(doc, f)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestMatchFilter_UnsupportedOperator(t *testing.T) {
	doc := mustRaw(t, bson.M{"name": "alice"})
	f, err := compileFilter(FilterQuery{"name": bson.M{"$regex": "^a"}})
	require.NoError(t, err)
	_, err = matchFilter(doc, f)
	require.Error(t, err)
}

func TestMatchFilter_EmptyLogicalArray(t *testing.T) {
	doc := mustRaw(t, bson.M{"name": "alice"})
	for _, op := range []string{"$and", "$or", "$nor"} {
		f, err := compileFilter(FilterQuery{op: bson.A{}})
		require.NoError(t, err)
		_, err = matchFilter(doc, f)
		require.Error(t, err, op)
	}

	m := NewMemoryStore("test")
	require.NoError(t, m.InsertOne(context.Background(), mustRaw(t, bson.M{"_id": "x", "name": "alice"})))
	_, err := m.Find(context.Background(), FilterQuery{"$and": bson.A{}})
	require.Error(t, err)
}

func TestApplyUpdate(t *testing.T) {
	doc := mustRaw(t, bson.D{
		{Key: "_id", Value: "x"},
		{Key: "name", Value: "a"},
		{Key: "count", Value: int32(1)},
		{Key: "note", Value: "drop me"},
	})

	out, err := applyUpdate(doc, UpdateQuery{
		"name":   "b",
		"$inc":   bson.M{"count": 2, "fresh": 1.5},
		"$unset": bson.M{"note": ""},
		"$set":   bson.M{"profile.city": "Rome"},
	})
	require.NoError(t, err)

	var got bson.M
	require.NoError(t, bson.Unmarshal(out, &got))
	require.Equal(t, "x", got["_id"])
	require.Equal(t, "b", got["name"])
	require.Equal(t, int32(3), got["count"])
	require.Equal(t, 1.5, got["fresh"])
	require.NotContains(t, got, "note")
	require.Equal(t, bson.M{"city": "Rome"}, got["profile"])
}

func TestApplyUpdate_Errors(t *testing.T) {
	doc := mustRaw(t, bson.M{"_id": "x", "name": "a"})

	_, err := applyUpdate(doc, UpdateQuery{"$set": bson.M{"_id": "y"}})
	require.ErrorIs(t, err, ErrImmutableID)

	_, err = applyUpdate(doc, UpdateQuery{"$push": bson.M{"tags": "a"}})
	require.Error(t, err)

	_, err = applyUpdate(doc, UpdateQuery{"$inc": bson.M{"name": 1}})
	require.Error(t, err)

	_, err = applyUpdate(doc, UpdateQuery{"$unset": bson.M{"_id": ""}})
	require.ErrorIs(t, err, ErrImmutableID)
}

func TestApplyUpdate_SameIDIsNoop(t *testing.T) {
	doc := mustRaw(t, bson.D{{Key: "_id", Value: "x"}, {Key: "name", Value: "a"}})

	out, err := applyUpdate(doc, UpdateQuery{"$set": bson.M{"_id": "x", "name": "b"}})
	require.NoError(t, err)
	require.Equal(t, "x", out.Lookup("_id").StringValue())
	require.Equal(t, "b", out.Lookup("name").StringValue())
}

func TestApplyUpdate_ConflictingPaths(t *testing.T) {
	doc := mustRaw(t, bson.M{"_id": "x", "count": int32(1), "profile": bson.M{"city": "Rome"}})

	cases := []UpdateQuery{
		{"$set": bson.M{"count": 5}, "$inc": bson.M{"count": 1}},
		{"$set": bson.M{"count": 5}, "$unset": bson.M{"count": ""}},
		{"$set": bson.M{"profile": bson.M{}}, "$unset": bson.M{"profile.city": ""}},
		{"count": 5, "$inc": bson.M{"count": 1}},
	}
	for _, upd := range cases {
		_, err := applyUpdate(doc, upd)
		require.ErrorIs(t, err, ErrUpdateConflict, "%v", upd)
	}

	// disjoint paths still apply together
	out, err := applyUpdate(doc, UpdateQuery{"$set": bson.M{"profile.zip": "00100"}, "$inc": bson.M{"count": 1}})
	require.NoError(t, err)
	require.Equal(t, int32(2), out.Lookup("count").Int32())
	require.Equal(t, "Rome", out.Lookup("profile", "city").StringValue())
}

func TestApplyUpdate_StructSetMergedWithPlainFields(t *testing.T) {
	doc := mustRaw(t, bson.D{{Key: "_id", Value: "x"}, {Key: "name", Value: "a"}, {Key: "email", Value: "old"}})

	out, err := applyUpdate(doc, UpdateQuery{"name": "b", "$set": emailChange{Email: "new"}})
	require.NoError(t, err)
	require.Equal(t, "b", out.Lookup("name").StringValue())
	require.Equal(t, "new", out.Lookup("email").StringValue())
}
