package stat

import "testing"

func TestContains(t *testing.T) {
	am := Mk("uart0", 0x1000, 0x100)

	cases := []struct {
		phys, size uint64
		want       bool
	}{
		{0x1000, 0x100, true},
		{0x1000, 0x10, true},
		{0x10F0, 0x10, true},
		{0x10F0, 0x20, false}, // spills past the end
		{0x0FF0, 0x10, false}, // starts before the region
		{0x1000, 0, false},
	}
	for _, c := range cases {
		if got := am.Contains(c.phys, c.size); got != c.want {
			t.Errorf("Contains(%#x, %#x) = %v, want %v", c.phys, c.size, got, c.want)
		}
	}
}

func TestNameTruncation(t *testing.T) {
	am := Mk("a-name-that-is-much-too-long-for-the-field", 0, 1)
	if len(am.Name()) != NameLen {
		t.Fatalf("Name() = %q, want length %d", am.Name(), NameLen)
	}
}

func TestBytesLength(t *testing.T) {
	am := Mk("x", 1, 2)
	if len(am.Bytes()) != NameLen+16 {
		t.Fatalf("Bytes() length = %d, want %d", len(am.Bytes()), NameLen+16)
	}
}
