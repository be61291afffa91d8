package ids

import "testing"

func TestGenerateUnique(t *testing.T) {
	SetNodeID(7)
	seen := make(map[int64]struct{}, 5000)
	prev := int64(0)
	for i := 0; i < 5000; i++ {
		id := Generate()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d at iteration %d", id, i)
		}
		seen[id] = struct{}{}
		if id <= prev {
			t.Fatalf("ids not increasing: %d after %d", id, prev)
		}
		prev = id
	}
}

func TestNodeIDEncodedAndClamped(t *testing.T) {
	SetNodeID(42)
	if node := (Generate() >> seqBits) & maxNode; node != 42 {
		t.Fatalf("node bits = %d", node)
	}

	// 越界回落到 1
	SetNodeID(5000)
	if node := (Generate() >> seqBits) & maxNode; node != 1 {
		t.Fatalf("node bits after clamp = %d", node)
	}
	SetNodeID(-3)
	if node := (Generate() >> seqBits) & maxNode; node != 1 {
		t.Fatalf("node bits after negative clamp = %d", node)
	}
}

func TestGenerateStringNumeric(t *testing.T) {
	SetNodeID(1)
	s := GenerateString()
	if s == "" || s[0] == '-' {
		t.Fatalf("id string = %q", s)
	}
}
