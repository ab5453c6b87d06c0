package exam

import (
	"testing"
	"time"
)

func TestNullUnixTime(t *testing.T) {
	if v := nullUnixTime(time.Time{}); v.Valid {
		t.Fatalf("zero time stored as %d, want NULL", v.Int64)
	}
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	v := nullUnixTime(at)
	if !v.Valid || v.Int64 != at.Unix() {
		t.Fatalf("nullUnixTime(%v) = %+v", at, v)
	}
}

func TestNullStr(t *testing.T) {
	if v := nullStr(""); v.Valid {
		t.Fatalf("empty string stored as %q, want NULL", v.String)
	}
	if v := nullStr("s1"); !v.Valid || v.String != "s1" {
		t.Fatalf("nullStr = %+v", v)
	}
}
