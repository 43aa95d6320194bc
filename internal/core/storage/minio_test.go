package storage

import (
	"strings"
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	k := ObjectKey("photos", "IMG_0001.JPG", now)
	if !strings.HasPrefix(k, "photos/2026/03/") || !strings.HasSuffix(k, ".jpg") {
		t.Fatalf("key = %q", k)
	}
	if k2 := ObjectKey("photos", "IMG_0001.JPG", now); k2 == k {
		t.Fatal("keys must be unique per upload")
	}
	if k := ObjectKey("photos", "noext", now); strings.Contains(k[len("photos/2026/03/"):], ".") {
		t.Fatalf("key without extension = %q", k)
	}
}
