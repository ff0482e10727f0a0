package storage

import (
	"strings"
	"testing"
)

func TestSafeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"user@example.com", "user_example_com"},
		{"first.last@sub.domain.org", "first_last_sub_domain_org"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := SafeEmail(tc.in); got != tc.want {
			t.Errorf("SafeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestImageExtension(t *testing.T) {
	if ext, ok := ImageExtension("image/png"); !ok || ext != ".png" {
		t.Errorf("image/png = %q, %v", ext, ok)
	}
	if ext, ok := ImageExtension("image/jpeg"); !ok || ext != ".jpg" {
		t.Errorf("image/jpeg = %q, %v", ext, ok)
	}
	if _, ok := ImageExtension("application/pdf"); ok {
		t.Error("application/pdf accepted as image")
	}
	if _, ok := ImageExtension("video/webm"); ok {
		t.Error("video/webm accepted as image")
	}
}

func TestSnapshotObject(t *testing.T) {
	obj := SnapshotObject("s@example.com", ".png")
	if !strings.HasPrefix(obj, "snapshots/s_example_com/") {
		t.Errorf("object = %q", obj)
	}
	if !strings.HasSuffix(obj, ".png") {
		t.Errorf("object = %q, missing extension", obj)
	}
	if obj == SnapshotObject("s@example.com", ".png") {
		t.Error("two snapshots produced the same object name")
	}
}

func TestVideoChunkObject(t *testing.T) {
	obj := VideoChunkObject("s@example.com", 3)
	if !strings.HasPrefix(obj, "uploads/s_example_com_videos/chunk_3_") {
		t.Errorf("object = %q", obj)
	}
	if !strings.HasSuffix(obj, ".webm") {
		t.Errorf("object = %q, missing .webm", obj)
	}
	// Same index must never collide across concurrent uploads.
	if obj == VideoChunkObject("s@example.com", 3) {
		t.Error("two chunks with the same index produced the same object name")
	}
}

func TestIdentityObject(t *testing.T) {
	obj := IdentityObject("s@example.com", ".jpg")
	if !strings.HasPrefix(obj, "identity/s_example_com_") {
		t.Errorf("object = %q", obj)
	}
	if !strings.HasSuffix(obj, ".jpg") {
		t.Errorf("object = %q, missing extension", obj)
	}
}
