package common

import (
	"testing"
	"time"
)

func TestCacheService_SetIfAbsent(t *testing.T) {
	cs := NewCacheService(60, 120)

	if !cs.SetIfAbsent("AS2_MSG_a", true, time.Minute) {
		t.Fatal("Expected first SetIfAbsent to store the value")
	}
	if cs.SetIfAbsent("AS2_MSG_a", true, time.Minute) {
		t.Error("Expected second SetIfAbsent to report an existing key")
	}

	cs.Delete("AS2_MSG_a")
	if !cs.SetIfAbsent("AS2_MSG_a", true, time.Minute) {
		t.Error("Expected SetIfAbsent to store after delete")
	}
}

func TestCacheService_Expiry(t *testing.T) {
	cs := NewCacheService(60, 120)
	cs.Set("k", "v", 10*time.Millisecond)

	if v, ok := cs.Get("k"); !ok || v != "v" {
		t.Fatalf("Expected cached value, got %v %v", v, ok)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := cs.Get("k"); ok {
		t.Error("Expected value to expire")
	}
}
