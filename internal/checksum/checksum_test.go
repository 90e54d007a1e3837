package checksum

import "testing"

func TestSum_Stable(t *testing.T) {
	a := Sum([]byte("card"))
	if a != Sum([]byte("card")) {
		t.Error("digest not stable")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
}

func TestCombine_OrderIndependent(t *testing.T) {
	m1 := map[string]string{"card.json": "a", "i18n/en.json": "b"}
	m2 := map[string]string{"i18n/en.json": "b", "card.json": "a"}
	if Combine(m1) != Combine(m2) {
		t.Error("combine depends on map order")
	}
	m2["i18n/en.json"] = "c"
	if Combine(m1) == Combine(m2) {
		t.Error("combine ignores a changed file digest")
	}
}
