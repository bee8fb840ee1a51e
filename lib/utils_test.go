package lib

import (
	"testing"
)

func TestGenerateRandomString(t *testing.T) {
	r1 := GenerateRandomString(20)
	if len(r1) != 20 {
		t.Error()
	}
	r2 := GenerateRandomString(50)
	if len(r2) != 50 {
		t.Error()
	}
	r3 := GenerateRandomString(5000)
	if len(r3) != 5000 {
		t.Error()
	}
}

func TestContains(t *testing.T) {
	items := []string{"a", "b", "c"}
	if !Contains(items, "b") {
		t.Error()
	}
	if Contains(items, "z") {
		t.Error()
	}
}

func TestGetUniqueItems(t *testing.T) {
	items := []string{"a", "b", "a", "c", "b"}
	unique := GetUniqueItems(items)
	if len(unique) != 3 {
		t.Errorf("expected 3 unique items, got %d", len(unique))
	}
}

func TestFilterOutString(t *testing.T) {
	items := []string{"a", "b", "c"}
	filtered := FilterOutString(items, "b")
	if Contains(filtered, "b") {
		t.Error()
	}
	if len(filtered) != 2 {
		t.Error()
	}
}
