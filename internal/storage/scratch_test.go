package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestScratch_RequestLifecycle(t *testing.T) {
	s, err := NewScratch(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewScratch: %v", err)
	}

	rd, err := s.NewRequestDir()
	if err != nil {
		t.Fatalf("NewRequestDir: %v", err)
	}

	path, err := rd.Save("wav", []byte("fake audio"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Ext(path) != ".wav" {
		t.Errorf("ext = %q, want .wav", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "fake audio" {
		t.Errorf("content = %q", data)
	}

	rd.Cleanup()
	if _, err := os.Stat(rd.Dir()); !os.IsNotExist(err) {
		t.Error("request dir should be gone after Cleanup")
	}
	// Second cleanup is a no-op
	rd.Cleanup()
}

func TestScratch_DefaultRoot(t *testing.T) {
	s, err := NewScratch("", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewScratch: %v", err)
	}
	if s.Root() == "" {
		t.Error("Root should not be empty")
	}
}

func TestRequestDir_PathExtensions(t *testing.T) {
	s, _ := NewScratch(t.TempDir(), zerolog.Nop())
	rd, err := s.NewRequestDir()
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Cleanup()

	if got := filepath.Ext(rd.Path(".mp3")); got != ".mp3" {
		t.Errorf("ext = %q, want .mp3", got)
	}
	if got := filepath.Ext(rd.Path("ogg")); got != ".ogg" {
		t.Errorf("ext = %q, want .ogg", got)
	}
}
