package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	if _, ok, err := s.Get(KeyAccessToken); err != nil || ok {
		t.Fatalf("Get on empty store = %v, %v", ok, err)
	}
	if err := s.Set(KeyAccessToken, "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(KeyAccessToken, "tok-2"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := s.Get(KeyAccessToken)
	if err != nil || !ok || v != "tok-2" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if err := s.Delete(KeyAccessToken); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(KeyAccessToken); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if _, ok, _ := s.Get(KeyAccessToken); ok {
		t.Fatal("slot still present after Delete")
	}

	for _, bad := range []string{"", "..", "a/b", `a\b`} {
		if err := s.Set(bad, "x"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Set(%q) err = %v, want ErrInvalidKey", bad, err)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "session")))
}

func TestFileStore_Permissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	s := NewFileStore(dir)
	if err := s.Set(KeyUserData, userJSON); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("dir perm = %o, want 700", perm)
	}
	info, err = os.Stat(filepath.Join(dir, KeyUserData))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file perm = %o, want 600", perm)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the slot file, got %d entries", len(entries))
	}
}

func TestFileStore_SharedBetweenManagers(t *testing.T) {
	dir := t.TempDir()
	a := NewFileStore(dir)
	b := NewFileStore(dir)
	if err := a.Set(KeyRefreshToken, "ref"); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := b.Get(KeyRefreshToken); err != nil || !ok || v != "ref" {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("SAWA_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SAWA_TEST_REDIS_URL not set")
	}
	s, err := NewRedisStore(url, "test-"+t.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	if err := s.Ping(t.Context()); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	exerciseStore(t, s)
}

func TestRedisStore_Key(t *testing.T) {
	s, err := NewRedisStore("redis://localhost:6379/0", "")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close() //nolint:errcheck
	if got := s.Key(KeyUserData); got != "sawa:session:default:userData" {
		t.Errorf("Key = %q", got)
	}

	if _, err := NewRedisStore("http://nope", "x"); err == nil {
		t.Error("expected error for non-redis URL")
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		kind    string
		want    string
		wantErr bool
	}{
		{"", "*session.FileStore", false},
		{"file", "*session.FileStore", false},
		{"memory", "*session.MemoryStore", false},
		{"redis://localhost:6379/0", "*session.RedisStore", false},
		{"etcd://x", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			s, closeFn, err := OpenStore(tt.kind, dir, "default")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenStore: %v", err)
			}
			defer closeFn() //nolint:errcheck
			if got := fmt.Sprintf("%T", s); got != tt.want {
				t.Errorf("type = %s, want %s", got, tt.want)
			}
		})
	}
}
