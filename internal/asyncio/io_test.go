package asyncio

import (
	"os"
	"testing"
)

func TestReadAll_DrainsToEOF(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		w.Write([]byte("hello"))
		w.Close()
	}()
	data, err := ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want %q", data, "hello")
	}
}

func TestReadAll_EmptyFeedGivesImmediateEOF(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	data, err := ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty read, got %q", data)
	}
}

func TestWriteAll_WritesFullBufferAndCloses(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- WriteAll(w, []byte("payload")) }()

	data, err := ReadAll(r)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("got %q, want %q", data, "payload")
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteAll returned error: %v", err)
	}
}

func TestWriteAll_SwallowsEPIPE(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	r.Close() // reader gone before any write happens

	big := make([]byte, 1<<20)
	if err := WriteAll(w, big); err != nil {
		t.Fatalf("expected EPIPE to be swallowed, got %v", err)
	}
}
