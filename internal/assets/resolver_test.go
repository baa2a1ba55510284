package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func newWorkspace(t *testing.T, allowLocal bool) *Workspace {
	t.Helper()
	f := NewFetcher(zerolog.Nop(), Options{TempDir: t.TempDir(), RetryMax: 0, AllowLocal: allowLocal})
	ws, err := f.Workspace()
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	return ws
}

func TestResolveHTTP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	ws := newWorkspace(t, false)

	var wg sync.WaitGroup
	paths := make([]string, 4)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := ws.Resolve(context.Background(), srv.URL+"/a.png")
			if err != nil {
				t.Errorf("resolve failed: %v", err)
			}
			paths[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range paths[1:] {
		if p != paths[0] {
			t.Errorf("expected one local path per locator, got %s and %s", paths[0], p)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single download, got %d", hits.Load())
	}
	if filepath.Ext(paths[0]) != ".png" || !strings.HasPrefix(paths[0], ws.Dir()) {
		t.Errorf("unexpected download path %s", paths[0])
	}
	data, err := os.ReadFile(paths[0])
	if err != nil || string(data) != "image-bytes" {
		t.Errorf("unexpected downloaded content %q (%v)", data, err)
	}

	if _, err := ws.Resolve(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestResolveLocal(t *testing.T) {
	ws := newWorkspace(t, true)
	local := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(local, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, locator := range []string{local, "file://" + local} {
		p, err := ws.Resolve(context.Background(), locator)
		if err != nil {
			t.Errorf("%s: unexpected error %v", locator, err)
		}
		if p != local {
			t.Errorf("%s: expected %s, got %s", locator, local, p)
		}
	}

	if _, err := ws.Resolve(context.Background(), filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := ws.Resolve(context.Background(), "ftp://example.com/a.png"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestResolveLocalDisallowed(t *testing.T) {
	ws := newWorkspace(t, false)
	local := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(local, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, locator := range []string{local, "file://" + local, "/etc/hostname"} {
		p, err := ws.Resolve(context.Background(), locator)
		if err == nil {
			t.Errorf("%s: expected rejection, resolved to %s", locator, p)
		}
	}
}

func TestCleanup(t *testing.T) {
	ws := newWorkspace(t, false)
	if err := os.WriteFile(ws.Path(".tmp"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Errorf("expected workspace removed, stat err=%v", err)
	}
}
