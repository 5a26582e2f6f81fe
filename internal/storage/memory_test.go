package storage

import (
	"context"
	"testing"
)

func TestMemoryStorageRoundtrip(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	snap, err := st.GetSnapshot(ctx, "2023-01-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected miss, got %+v", snap)
	}

	if err := st.SaveSnapshot(ctx, RateSnapshot{Date: "2023-01-04", Payload: []byte("v1")}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	snap, err = st.GetSnapshot(ctx, "2023-01-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap == nil || string(snap.Payload) != "v1" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.FetchedAt.IsZero() {
		t.Errorf("expected FetchedAt to be defaulted")
	}
}

func TestMemoryStorageUpsert(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	_ = st.SaveSnapshot(ctx, RateSnapshot{Date: "2023-01-04", Payload: []byte("v1")})
	_ = st.SaveSnapshot(ctx, RateSnapshot{Date: "2023-01-04", Payload: []byte("v2")})

	snap, err := st.GetSnapshot(ctx, "2023-01-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(snap.Payload) != "v2" {
		t.Errorf("expected v2 after upsert, got %q", snap.Payload)
	}
}

func TestMemoryStorageLatestSnapshotBefore(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	for _, d := range []string{"2023-01-02", "2023-01-04", "2023-01-06"} {
		_ = st.SaveSnapshot(ctx, RateSnapshot{Date: d, Payload: []byte(d)})
	}

	cases := []struct {
		date string
		want string
	}{
		{"2023-01-05", "2023-01-04"},
		{"2023-01-04", "2023-01-04"}, // inclusive
		{"2023-01-10", "2023-01-06"},
		{"2023-01-01", ""},
	}
	for _, c := range cases {
		snap, err := st.LatestSnapshotBefore(ctx, c.date)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.date, err)
		}
		if c.want == "" {
			if snap != nil {
				t.Errorf("%s: expected miss, got %s", c.date, snap.Date)
			}
			continue
		}
		if snap == nil || snap.Date != c.want {
			t.Errorf("%s: expected %s, got %+v", c.date, c.want, snap)
		}
	}
}
