package credential

import "testing"

func TestLoadBundleRejectsGarbage(t *testing.T) {
	if _, err := LoadBundle([]byte("not a pkcs12 file"), "irrelevant"); err == nil {
		t.Fatalf("LoadBundle accepted garbage input")
	}
}

func TestLoadBundleRejectsEmptyInput(t *testing.T) {
	if _, err := LoadBundle(nil, ""); err == nil {
		t.Fatalf("LoadBundle accepted empty input")
	}
}
