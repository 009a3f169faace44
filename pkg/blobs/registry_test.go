package blobs

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestCreateResolveRevoke(t *testing.T) {
	r := NewRegistry()
	a := r.Create([]byte("first"))
	b := r.Create([]byte("second!"))

	if a == b {
		t.Fatalf("Expected distinct IDs, got %s twice", a)
	}
	if r.Len() != 2 {
		t.Errorf("Expected 2 blobs, got %d", r.Len())
	}
	if r.Bytes() != 12 {
		t.Errorf("Expected 12 bytes, got %d", r.Bytes())
	}

	data, err := r.Resolve(a)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("Expected 'first', got %q", data)
	}

	if !r.Revoke(a) {
		t.Error("Expected first revoke to report true")
	}
	if r.Revoke(a) {
		t.Error("Expected second revoke to report false")
	}
	if _, err := r.Resolve(a); !errors.Is(err, ErrRevoked) {
		t.Errorf("Expected ErrRevoked, got %v", err)
	}
	if r.Bytes() != 7 {
		t.Errorf("Expected 7 bytes, got %d", r.Bytes())
	}
}

func TestRevokeAll(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.Create([]byte{byte(i)})
	}
	if n := r.RevokeAll(); n != 5 {
		t.Errorf("Expected 5 revoked, got %d", n)
	}
	if r.Len() != 0 || r.Bytes() != 0 {
		t.Errorf("Expected empty registry, got %d blobs, %d bytes", r.Len(), r.Bytes())
	}
}

func TestScopeReleasesOnErrorPath(t *testing.T) {
	r := NewRegistry()
	var kept ID

	work := func(fail bool) error {
		scope := r.Scope()
		defer scope.Release()

		scope.Create([]byte("decoded"))
		out := scope.Create([]byte("cropped"))
		if fail {
			return fmt.Errorf("encode failed")
		}
		scope.Keep(out)
		kept = out
		return nil
	}

	if err := work(true); err == nil {
		t.Fatal("Expected error")
	}
	if r.Len() != 0 {
		t.Errorf("Expected all buffers released after failure, got %d", r.Len())
	}

	if err := work(false); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 1 {
		t.Errorf("Expected only the kept buffer, got %d", r.Len())
	}
	if _, err := r.Resolve(kept); err != nil {
		t.Errorf("Kept buffer should resolve: %v", err)
	}
}

func TestConcurrentCreate(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Revoke(r.Create([]byte("x")))
			}
		}()
	}
	wg.Wait()
	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", r.Len())
	}
}
