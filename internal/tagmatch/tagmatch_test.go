package tagmatch

import "testing"

func TestMatchAny(t *testing.T) {
	cases := []struct {
		row, query []string
		want       bool
	}{
		{nil, []string{"alice"}, true},           // global row always visible under any
		{[]string{"alice"}, nil, true},            // empty query matches all under any
		{[]string{"alice"}, []string{"alice"}, true},
		{[]string{"alice"}, []string{"bob"}, false},
	}
	for _, c := range cases {
		if got := Match(c.row, c.query, Any); got != c.want {
			t.Errorf("Match(%v, %v, any) = %v, want %v", c.row, c.query, got, c.want)
		}
	}
}

func TestMatchAnyStrict(t *testing.T) {
	if Match(nil, nil, AnyStrict) != true {
		t.Error("empty query under any_strict should match only empty-tag rows")
	}
	if Match([]string{"alice"}, nil, AnyStrict) != false {
		t.Error("empty query under any_strict should not match tagged rows")
	}
	if Match(nil, []string{"alice"}, AnyStrict) != false {
		t.Error("any_strict excludes globals from a non-empty query")
	}
}

func TestMatchAllStrict(t *testing.T) {
	if !Match([]string{"alice", "vip"}, []string{"alice"}, AllStrict) {
		t.Error("superset row should satisfy all_strict")
	}
	if Match(nil, []string{"alice"}, AllStrict) {
		t.Error("all_strict must exclude global rows when query is non-empty")
	}
}

func TestCanonicalKeyOrderIndependent(t *testing.T) {
	if CanonicalKey([]string{"b", "a"}) != CanonicalKey([]string{"a", "b"}) {
		t.Error("canonical key must be order-independent")
	}
}

func TestUnionDedupes(t *testing.T) {
	got := Union([]string{"a", "b"}, []string{"b", "c"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Union = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Union = %v, want %v", got, want)
		}
	}
}
