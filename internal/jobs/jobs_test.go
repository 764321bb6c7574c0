package jobs

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	id := r.Create()

	j, err := r.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != StatusQueued || j.Progress != 0 {
		t.Fatalf("new job = %+v", j)
	}

	r.SetProgress(id, 40)
	j, _ = r.Get(id)
	if j.Status != StatusProcessing || j.Progress != 40 {
		t.Fatalf("after progress: %+v", j)
	}

	r.Complete(id, "fp-1")
	j, _ = r.Get(id)
	if j.Status != StatusCompleted || j.Progress != 100 || j.FloorplanID != "fp-1" {
		t.Fatalf("after complete: %+v", j)
	}
}

func TestRegistryProgressMonotonic(t *testing.T) {
	r := NewRegistry()
	id := r.Create()

	r.SetProgress(id, 60)
	r.SetProgress(id, 30)
	j, _ := r.Get(id)
	if j.Progress != 60 {
		t.Fatalf("progress = %d, want 60", j.Progress)
	}
}

func TestRegistryProgressAfterTerminalIgnored(t *testing.T) {
	r := NewRegistry()
	id := r.Create()

	r.Fail(id, errors.New("render failed"))
	r.SetProgress(id, 50)
	j, _ := r.Get(id)
	if j.Status != StatusFailed || j.Progress != 0 {
		t.Fatalf("failed job mutated: %+v", j)
	}
	if j.Error != "render failed" {
		t.Fatalf("error = %q", j.Error)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	r := NewRegistry()
	id := r.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			r.SetProgress(id, p*2)
			r.Get(id)
		}(i)
	}
	wg.Wait()

	j, _ := r.Get(id)
	if j.Progress != 98 {
		t.Fatalf("progress = %d, want 98", j.Progress)
	}
}
