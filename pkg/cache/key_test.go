package cache

import (
	"testing"
)

func TestStableStringifySortsKeysRecursively(t *testing.T) {
	a := map[string]interface{}{
		"b": 1,
		"a": map[string]interface{}{"z": true, "y": []interface{}{map[string]interface{}{"d": "x", "c": nil}}},
	}
	got, err := StableStringify(a)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a":{"y":[{"c":null,"d":"x"}],"z":true},"b":1}`
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestHashKeyIgnoresFieldOrder(t *testing.T) {
	type factsA struct {
		AgeGroup string `json:"ageGroup"`
		Location string `json:"location"`
	}
	type factsB struct {
		Location string `json:"location"`
		AgeGroup string `json:"ageGroup"`
	}
	k1, err := HashKey("v1", factsA{AgeGroup: "12-14", Location: "Haifa"})
	if err != nil {
		t.Fatal(err)
	}
	k2, err := HashKey("v1", factsB{Location: "Haifa", AgeGroup: "12-14"})
	if err != nil {
		t.Fatal(err)
	}
	k3, err := HashKey("v1", map[string]string{"location": "Haifa", "ageGroup": "12-14"})
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 || k1 != k3 {
		t.Fatalf("expected identical keys: %s %s %s", k1, k2, k3)
	}
	if len(k1) != 64 {
		t.Fatalf("expected sha256 hex, got %q", k1)
	}
}

func TestHashKeyVersionAndArrayOrderMatter(t *testing.T) {
	base := map[string]interface{}{"topics": []string{"a", "b"}}
	k1, _ := HashKey("v1", base)
	k2, _ := HashKey("v2", base)
	k3, _ := HashKey("v1", map[string]interface{}{"topics": []string{"b", "a"}})
	if k1 == k2 {
		t.Fatal("version tag must change the key")
	}
	if k1 == k3 {
		t.Fatal("array order is significant")
	}
}

func TestHashKeyRejectsUnmarshalable(t *testing.T) {
	if _, err := HashKey("v1", map[string]interface{}{"f": func() {}}); err == nil {
		t.Fatal("expected error for unmarshalable input")
	}
}
