package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/lucasew/cachequota/internal/eviction"
	"github.com/lucasew/cachequota/internal/repository"
)

const mib = 1024 * 1024

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func createFile(t *testing.T, dir, name string, size int64, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	_ = f.Close()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}
}

// seed lays out a (1MiB, oldest), b (2MiB) and c (3MiB, newest) for tenant.
func seed(t *testing.T, base, tenant string) string {
	t.Helper()
	dir := filepath.Join(base, tenant)
	createFile(t, dir, "a", 1*mib, epoch)
	createFile(t, dir, "b", 2*mib, epoch.Add(time.Minute))
	createFile(t, dir, "c", 3*mib, epoch.Add(2*time.Minute))
	return dir
}

func newMux(base string) *http.ServeMux {
	mux := http.NewServeMux()
	NewRemovalHandler(repository.NewTenantStore(base), eviction.NewMaintainer(), 1024).Register(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodePaths(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	var paths []string
	if err := json.Unmarshal(w.Body.Bytes(), &paths); err != nil {
		t.Fatalf("body is not a JSON array of strings: %v (%s)", err, w.Body.String())
	}
	sort.Strings(paths)
	return paths
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d. Body: %s", w.Code, w.Body.String())
	}
	var body errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body: %v (%s)", err, w.Body.String())
	}
	return body.Err
}

func TestRemovalHandler(t *testing.T) {
	t.Run("Evicts Oldest Until Under Quota", func(t *testing.T) {
		base := t.TempDir()
		dir := seed(t, base, "team1")

		w := do(t, newMux(base), http.MethodDelete, "/artifacts?teamId=team1&mb=4")
		paths := decodePaths(t, w)

		if len(paths) != 1 || paths[0] != filepath.Join(dir, "c") {
			t.Errorf("expected only c to remain, got %v", paths)
		}
		if w.Header().Get("X-Evicted-Count") != "2" {
			t.Errorf("expected X-Evicted-Count 2, got %q", w.Header().Get("X-Evicted-Count"))
		}
		if w.Header().Get("X-Run-Id") == "" {
			t.Error("expected X-Run-Id header")
		}
	})

	t.Run("Under Quota Keeps Everything", func(t *testing.T) {
		base := t.TempDir()
		dir := seed(t, base, "team1")

		paths := decodePaths(t, do(t, newMux(base), http.MethodDelete, "/artifacts?teamId=team1&mb=6"))
		want := []string{filepath.Join(dir, "a"), filepath.Join(dir, "b"), filepath.Join(dir, "c")}
		if len(paths) != 3 {
			t.Fatalf("expected 3 files, got %v", paths)
		}
		for i := range want {
			if paths[i] != want[i] {
				t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
			}
		}
	})

	t.Run("TeamId Takes Precedence Over Slug", func(t *testing.T) {
		base := t.TempDir()
		teamDir := seed(t, base, "team1")
		slugDir := seed(t, base, "slug1")

		paths := decodePaths(t, do(t, newMux(base), http.MethodDelete, "/artifacts?teamId=team1&slug=slug1&mb=0"))
		if len(paths) != 0 {
			t.Errorf("expected team1 to be emptied, got %v", paths)
		}
		if entries, _ := os.ReadDir(teamDir); len(entries) != 0 {
			t.Errorf("team1 still has %d files", len(entries))
		}
		if entries, _ := os.ReadDir(slugDir); len(entries) != 3 {
			t.Errorf("slug1 should be untouched, has %d files", len(entries))
		}
	})

	t.Run("Slug Fallback", func(t *testing.T) {
		base := t.TempDir()
		dir := seed(t, base, "slug1")

		paths := decodePaths(t, do(t, newMux(base), http.MethodDelete, "/artifacts?slug=slug1&mb=3"))
		if len(paths) != 1 || paths[0] != filepath.Join(dir, "c") {
			t.Errorf("expected only c to remain, got %v", paths)
		}
	})

	t.Run("Default Quota Matches 1024", func(t *testing.T) {
		base := t.TempDir()
		seed(t, base, "implicit")
		seed(t, base, "explicit")
		mux := newMux(base)

		implicit := decodePaths(t, do(t, mux, http.MethodDelete, "/artifacts?teamId=implicit"))
		explicit := decodePaths(t, do(t, mux, http.MethodDelete, "/artifacts?teamId=explicit&mb=1024"))
		if len(implicit) != 3 || len(explicit) != 3 {
			t.Errorf("expected both untouched, got %d and %d files", len(implicit), len(explicit))
		}
	})

	t.Run("Artifact Id Is Ignored", func(t *testing.T) {
		base := t.TempDir()
		withID := seed(t, base, "with")
		without := seed(t, base, "without")
		mux := newMux(base)

		a := decodePaths(t, do(t, mux, http.MethodDelete, "/artifacts/c?teamId=with&mb=4"))
		b := decodePaths(t, do(t, mux, http.MethodDelete, "/artifacts?teamId=without&mb=4"))

		if len(a) != 1 || a[0] != filepath.Join(withID, "c") {
			t.Errorf("with id: expected only c, got %v", a)
		}
		if len(b) != 1 || b[0] != filepath.Join(without, "c") {
			t.Errorf("without id: expected only c, got %v", b)
		}
	})

	t.Run("HEAD Runs Maintenance Without Body", func(t *testing.T) {
		base := t.TempDir()
		dir := seed(t, base, "team1")

		w := do(t, newMux(base), http.MethodHead, "/artifacts?teamId=team1&mb=4")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Name() != "c" {
			t.Errorf("expected only c to remain, got %v", entries)
		}
	})

	t.Run("Unknown Parameter Rejected", func(t *testing.T) {
		base := t.TempDir()
		dir := seed(t, base, "team1")

		detail := decodeError(t, do(t, newMux(base), http.MethodDelete, "/artifacts?teamId=team1&mb=0&force=1"))
		if detail.Kind != KindInvalidRequest {
			t.Errorf("expected kind %s, got %s", KindInvalidRequest, detail.Kind)
		}
		if entries, _ := os.ReadDir(dir); len(entries) != 3 {
			t.Errorf("nothing should be deleted, %d files left", len(entries))
		}
	})

	t.Run("Differently Cased Parameters Rejected", func(t *testing.T) {
		base := t.TempDir()
		dir := seed(t, base, "team1")
		mux := newMux(base)

		for _, target := range []string{
			"/artifacts?TEAMID=team1&MB=0",
			"/artifacts?teamid=team1&Mb=0",
		} {
			detail := decodeError(t, do(t, mux, http.MethodDelete, target))
			if detail.Kind != KindInvalidRequest {
				t.Errorf("%s: expected kind %s, got %s", target, KindInvalidRequest, detail.Kind)
			}
		}
		if entries, _ := os.ReadDir(dir); len(entries) != 3 {
			t.Errorf("nothing should be deleted, %d files left", len(entries))
		}
	})

	t.Run("Non Numeric Quota Rejected", func(t *testing.T) {
		base := t.TempDir()
		seed(t, base, "team1")

		detail := decodeError(t, do(t, newMux(base), http.MethodDelete, "/artifacts?teamId=team1&mb=lots"))
		if detail.Kind != KindInvalidRequest {
			t.Errorf("expected kind %s, got %s", KindInvalidRequest, detail.Kind)
		}
	})

	t.Run("Missing Tenant Rejected", func(t *testing.T) {
		detail := decodeError(t, do(t, newMux(t.TempDir()), http.MethodDelete, "/artifacts?mb=1"))
		if detail.Kind != KindInvalidRequest {
			t.Errorf("expected kind %s, got %s", KindInvalidRequest, detail.Kind)
		}
	})

	t.Run("Traversal Rejected", func(t *testing.T) {
		detail := decodeError(t, do(t, newMux(t.TempDir()), http.MethodDelete, "/artifacts?teamId=..&mb=0"))
		if detail.Kind != KindInvalidRequest {
			t.Errorf("expected kind %s, got %s", KindInvalidRequest, detail.Kind)
		}
	})

	t.Run("Missing Directory Is Unreadable", func(t *testing.T) {
		detail := decodeError(t, do(t, newMux(t.TempDir()), http.MethodDelete, "/artifacts?teamId=ghost"))
		if detail.Kind != KindDirectoryUnreadable {
			t.Errorf("expected kind %s, got %s", KindDirectoryUnreadable, detail.Kind)
		}
		if detail.Path == "" || detail.Message == "" {
			t.Errorf("expected path and message, got %+v", detail)
		}
	})

	t.Run("GET Not Allowed", func(t *testing.T) {
		w := do(t, newMux(t.TempDir()), http.MethodGet, "/artifacts?teamId=team1")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", w.Code)
		}
	})
}
