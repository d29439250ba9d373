package upload

import (
	"os"
	"path/filepath"
	"testing"
)

// TestStateDB verifies uploads are keyed by path, size and hash.
func TestStateDB(t *testing.T) {
	s, err := OpenStateDB(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("OpenStateDB: %v", err)
	}
	defer s.Close()

	ok, err := s.IsUploaded("a.csv", 10, "abc")
	if err != nil || ok {
		t.Fatalf("IsUploaded before mark = %v, %v", ok, err)
	}
	if err := s.MarkUploaded("a.csv", 10, "abc", "id-1", 4); err != nil {
		t.Fatalf("MarkUploaded: %v", err)
	}

	tests := []struct {
		name string
		size int64
		hash string
		want bool
	}{
		{"same", 10, "abc", true},
		{"resized", 11, "abc", false},
		{"rewritten", 10, "def", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.IsUploaded("a.csv", tt.size, tt.hash)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("IsUploaded = %v, want %v", got, tt.want)
			}
		})
	}

	files, err := s.Uploaded()
	if err != nil {
		t.Fatalf("Uploaded: %v", err)
	}
	if len(files) != 1 || files[0].AnalysisID != "id-1" || files[0].Reps != 4 {
		t.Errorf("Uploaded = %+v", files)
	}
}

// TestHashFile verifies identical content hashes identically.
func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	os.WriteFile(a, []byte("frame,time_s\n"), 0o644)
	os.WriteFile(b, []byte("frame,time_s\n"), 0o644)

	ha, err := HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, _ := HashFile(b)
	if ha != hb || len(ha) != 64 {
		t.Errorf("hashes = %q, %q", ha, hb)
	}
	if _, err := HashFile(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
