package ordinal

import "testing"

func TestGetSet(t *testing.T) {
	cases := []struct {
		desc uint16
		ord  uint8
	}{
		{0x0000, 0x00},
		{0x01FF, 0x01},
		{0xFE01, 0xFE},
		{0xFF00, 0xFF},
	}
	for _, c := range cases {
		if got := Get(c.desc); got != c.ord {
			t.Errorf("Get(%#04x) = %#02x, want %#02x", c.desc, got, c.ord)
		}
		if got := Set(c.desc&0x00FF, c.ord); got != c.desc {
			t.Errorf("Set(%#04x, %#02x) = %#04x, want %#04x", c.desc&0x00FF, c.ord, got, c.desc)
		}
	}
}

func TestSetPreservesLowByte(t *testing.T) {
	desc := uint16(0x0042) // reference-type bits set, ordinal zero
	got := Set(desc, 0x07)
	want := uint16(0x0742)
	if got != want {
		t.Errorf("Set(%#04x, 0x07) = %#04x, want %#04x", desc, got, want)
	}
	if Get(got) != 0x07 {
		t.Errorf("round-trip Get(Set(desc, ord)) = %#02x, want 0x07", Get(got))
	}
}

func TestIsSentinel(t *testing.T) {
	for _, ord := range []uint8{Self, DynamicLookup, Executable} {
		if !IsSentinel(ord) {
			t.Errorf("IsSentinel(%#02x) = false, want true", ord)
		}
	}
	if IsSentinel(0x01) {
		t.Errorf("IsSentinel(0x01) = true, want false")
	}
	if IsSentinel(MaxLibrary) {
		t.Errorf("IsSentinel(MaxLibrary) = true, want false")
	}
}
