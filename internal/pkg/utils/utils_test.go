package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateProbeID(t *testing.T) {
	a, err := GenerateProbeID()
	if err != nil {
		t.Fatalf("GenerateProbeID failed: %v", err)
	}
	b, _ := GenerateProbeID()
	if !IsProbeID(a) {
		t.Errorf("unexpected probe id format: %s", a)
	}
	if a == b {
		t.Errorf("probe ids should differ: %s", a)
	}
}

func TestAntiCacheToken(t *testing.T) {
	tok := AntiCacheToken()
	if len(tok) != 7 {
		t.Fatalf("expected 7 chars, got %q", tok)
	}
	for _, c := range tok {
		if !containsRune(tokenAlphabet, c) {
			t.Errorf("unexpected char %q in token", c)
		}
	}
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

func TestLoadList(t *testing.T) {
	got := LoadList(" http://a.example , http://b.example,,")
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Errorf("comma list parsed wrong: %v", got)
	}

	path := filepath.Join(t.TempDir(), "targets.txt")
	content := "# targets\nhttp://a.example\n\n  http://c.example  \n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	got = LoadList(path)
	if len(got) != 2 || got[1] != "http://c.example" {
		t.Errorf("file list parsed wrong: %v", got)
	}
}

func TestDedup(t *testing.T) {
	got := Dedup([]string{"a", "b", "a", "c", "b"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Dedup = %v", got)
	}
}
