package storage

import (
	"strings"
	"testing"
)

// TestCollectionName_Deterministic verifies the same key always maps to the
// same collection.
func TestCollectionName_Deterministic(t *testing.T) {
	a := CollectionName("default_user")
	b := CollectionName("default_user")
	if a != b {
		t.Errorf("Expected stable name, got %q and %q", a, b)
	}
	if !strings.HasPrefix(a, "user_default_user_") {
		t.Errorf("Expected readable prefix, got %q", a)
	}
}

// TestCollectionName_DistinctAfterSanitization verifies keys that sanitize
// to the same prefix still get distinct collections.
func TestCollectionName_DistinctAfterSanitization(t *testing.T) {
	a := CollectionName("alice.smith")
	b := CollectionName("alice smith")
	if a == b {
		t.Errorf("Expected distinct collections for distinct keys, both got %q", a)
	}
}

// TestCollectionName_Charset verifies output uses only allowed characters
// and stays inside the 63 character backend limit.
func TestCollectionName_Charset(t *testing.T) {
	keys := []string{
		"default_user",
		"alice@example.com",
		"日本語のユーザー",
		"",
		strings.Repeat("x", 200),
		"spaces and.dots",
	}

	for _, key := range keys {
		name := CollectionName(key)
		if len(name) == 0 || len(name) > 63 {
			t.Errorf("Name %q for key %q has invalid length %d", name, key, len(name))
		}
		for _, r := range name {
			valid := r == '_' || r == '-' ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			if !valid {
				t.Errorf("Name %q for key %q contains invalid rune %q", name, key, r)
			}
		}
	}
}

// TestCollectionName_EmptySanitized verifies keys with no representable
// characters still produce a usable name.
func TestCollectionName_EmptySanitized(t *testing.T) {
	name := CollectionName("日本語")
	if !strings.HasPrefix(name, "user_") {
		t.Errorf("Expected user_ prefix, got %q", name)
	}
	if name == "user_" {
		t.Errorf("Expected hash suffix, got bare prefix %q", name)
	}
}

// TestPointID_StablePerPosition verifies IDs depend on collection, file and
// position only.
func TestPointID_StablePerPosition(t *testing.T) {
	a := pointID("user_x_12345678", "notes.pdf", 3)
	b := pointID("user_x_12345678", "notes.pdf", 3)
	if a != b {
		t.Errorf("Expected stable ID, got %q and %q", a, b)
	}

	if pointID("user_x_12345678", "notes.pdf", 4) == a {
		t.Error("Expected different positions to get different IDs")
	}
	if pointID("user_x_12345678", "other.pdf", 3) == a {
		t.Error("Expected different files to get different IDs")
	}
	if pointID("user_y_87654321", "notes.pdf", 3) == a {
		t.Error("Expected different collections to get different IDs")
	}

	// Qdrant accepts point IDs only as UUIDs or integers.
	if len(a) != 36 || strings.Count(a, "-") != 4 {
		t.Errorf("Expected UUID-shaped ID, got %q", a)
	}
}
