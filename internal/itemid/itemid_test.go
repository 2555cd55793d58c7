package itemid

import (
	"strings"
	"sync"
	"testing"
)

func TestNew_ShapeAndAlphabet(t *testing.T) {
	for range 100 {
		id := string(New())
		if len(id) != Length {
			t.Fatalf("len(%q)=%d want %d", id, len(id), Length)
		}
		for _, r := range id {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("id %q has rune %q outside alphabet", id, r)
			}
		}
	}
}

func TestNew_ConcurrentUnique(t *testing.T) {
	const workers, per = 8, 500
	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*per)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range per {
				id := string(New())
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*per {
		t.Fatalf("got %d unique ids want %d", len(seen), workers*per)
	}
}
