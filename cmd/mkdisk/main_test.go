package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRunWritesImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "boot.bin")
	payload := bytes.Repeat([]byte{0xAB}, 700)
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "disk.img")

	if err := run(src, out, 4, 512, 0xEE); err != nil {
		t.Fatalf("run() = %v", err)
	}

	img, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(img) != 4*512 {
		t.Fatalf("image size = %d, want %d", len(img), 4*512)
	}
	if !bytes.Equal(img[:700], payload) {
		t.Fatalf("image does not start with src contents")
	}
	for i := 700; i < len(img); i++ {
		if img[i] != 0xEE {
			t.Fatalf("img[%d] = %#x, want 0xee", i, img[i])
		}
	}
}

func TestRunReplacesExistingImage(t *testing.T) {
	out := filepath.Join(t.TempDir(), "disk.img")
	if err := run("", out, 8, 512, 0); err != nil {
		t.Fatalf("run() = %v", err)
	}
	if err := run("", out, 2, 256, 1); err != nil {
		t.Fatalf("run() = %v", err)
	}
	st, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if st.Size() != 512 {
		t.Fatalf("image size = %d, want 512", st.Size())
	}
}

func TestRunRejectsOversizedSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "big.bin")
	if err := os.WriteFile(src, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run(src, filepath.Join(dir, "disk.img"), 2, 512, 0); err == nil {
		t.Fatalf("run() = nil, want error")
	}
}
