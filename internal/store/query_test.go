package store

import "testing"

func doc(id, data string) Document {
	return Document{ID: id, Data: []byte(data)}
}

func TestApplyQueryFilters(t *testing.T) {
	docs := []Document{
		doc("a", `{"roomCode":"123456","status":"waiting"}`),
		doc("b", `{"roomCode":"123456","status":"completed"}`),
		doc("c", `{"roomCode":"654321","status":"active"}`),
	}

	got := ApplyQuery(docs, Query{Filters: []Filter{Eq("roomCode", "123456")}})
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}

	got = ApplyQuery(docs, Query{Filters: []Filter{
		Eq("roomCode", "123456"),
		In("status", "waiting", "active"),
	}})
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only doc a, got %+v", got)
	}

	// A filter on a missing field matches nothing.
	got = ApplyQuery(docs, Query{Filters: []Filter{Eq("hostUID", "u1")}})
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestApplyQueryNumericEquality(t *testing.T) {
	docs := []Document{
		doc("a", `{"rank":1}`),
		doc("b", `{"rank":2}`),
	}
	// Filter values arrive as Go ints, documents decode as float64.
	got := ApplyQuery(docs, Query{Filters: []Filter{Eq("rank", 2)}})
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected doc b, got %+v", got)
	}
}

func TestApplyQueryOrderAndLimit(t *testing.T) {
	docs := []Document{
		doc("a", `{"totalScore":1033}`),
		doc("b", `{"totalScore":2100}`),
		doc("c", `{"totalScore":0}`),
	}

	got := ApplyQuery(docs, Query{OrderBy: "totalScore", Desc: true})
	if got[0].ID != "b" || got[1].ID != "a" || got[2].ID != "c" {
		t.Fatalf("wrong descending order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}

	got = ApplyQuery(docs, Query{OrderBy: "totalScore", Desc: true, Limit: 1})
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected top scorer only, got %+v", got)
	}
}

func TestApplyQueryOrderByTimestampString(t *testing.T) {
	// RFC 3339 strings order lexically, which is chronological.
	docs := []Document{
		doc("late", `{"joinedAt":"2025-03-01T12:00:30Z"}`),
		doc("early", `{"joinedAt":"2025-03-01T12:00:05Z"}`),
	}
	got := ApplyQuery(docs, Query{OrderBy: "joinedAt"})
	if got[0].ID != "early" || got[1].ID != "late" {
		t.Fatalf("wrong join order: %s %s", got[0].ID, got[1].ID)
	}
}

func TestApplyQueryOrderIsStable(t *testing.T) {
	docs := []Document{
		doc("first", `{"totalScore":1000}`),
		doc("second", `{"totalScore":1000}`),
	}
	got := ApplyQuery(docs, Query{OrderBy: "totalScore", Desc: true})
	if got[0].ID != "first" || got[1].ID != "second" {
		t.Fatalf("tie broke input order: %s %s", got[0].ID, got[1].ID)
	}
}

func TestParentCollection(t *testing.T) {
	col, id := ParentCollection("rooms/r1/participants/u1")
	if col != "rooms/r1/participants" || id != "u1" {
		t.Fatalf("got %q %q", col, id)
	}
	col, id = ParentCollection("standalone")
	if col != "" || id != "standalone" {
		t.Fatalf("got %q %q", col, id)
	}
}
