package bitmap

import "testing"

func TestSetClearIsSet(t *testing.T) {
	t.Run("set then is-set", func(t *testing.T) {
		bm := FromBytes(make([]byte, 4))
		if err := bm.Set(9); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		set, err := bm.IsSet(9)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !set {
			t.Fatalf("expected bit 9 to be set")
		}
		set, err = bm.IsSet(8)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set {
			t.Fatalf("expected bit 8 to be clear")
		}
	})

	t.Run("clear after set", func(t *testing.T) {
		bm := FromBytes(make([]byte, 1))
		if err := bm.Set(3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := bm.Clear(3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		set, err := bm.IsSet(3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if set {
			t.Fatalf("expected bit 3 to be clear after Clear")
		}
	})

	t.Run("out of range", func(t *testing.T) {
		bm := FromBytes(make([]byte, 1))
		if _, err := bm.IsSet(8); err == nil {
			t.Fatalf("expected error for out-of-range bit")
		}
		if err := bm.Set(-1); err == nil {
			t.Fatalf("expected error for negative bit")
		}
	})
}

func TestFindFirstClear(t *testing.T) {
	t.Run("empty bitmap", func(t *testing.T) {
		bm := FromBytes(make([]byte, 2))
		if got := bm.FindFirstClear(16); got != 0 {
			t.Fatalf("expected 0, got %d", got)
		}
	})

	t.Run("skips set bits", func(t *testing.T) {
		bm := FromBytes(make([]byte, 2))
		for _, b := range []int{0, 1, 2} {
			if err := bm.Set(b); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if got := bm.FindFirstClear(16); got != 3 {
			t.Fatalf("expected 3, got %d", got)
		}
	})

	t.Run("determinism after free", func(t *testing.T) {
		bm := FromBytes(make([]byte, 1))
		for i := 0; i < 8; i++ {
			if err := bm.Set(i); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if got := bm.FindFirstClear(8); got != -1 {
			t.Fatalf("expected -1 when full, got %d", got)
		}
		if err := bm.Clear(4); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := bm.FindFirstClear(8); got != 4 {
			t.Fatalf("expected freed bit 4 to be returned first, got %d", got)
		}
	})

	t.Run("all set returns -1", func(t *testing.T) {
		bm := FromBytes([]byte{0xff})
		if got := bm.FindFirstClear(8); got != -1 {
			t.Fatalf("expected -1, got %d", got)
		}
	})
}

func TestToBytesRoundTrip(t *testing.T) {
	bm := FromBytes(make([]byte, 4))
	if err := bm.Set(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := bm.ToBytes()
	bm2 := FromBytes(b)
	set, err := bm2.IsSet(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !set {
		t.Fatalf("expected round-tripped bitmap to keep bit 5 set")
	}
}
