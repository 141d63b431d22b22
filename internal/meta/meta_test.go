package meta

import (
	"testing"
	"time"

	"github.com/kasei-go/diomede/internal/kv"
)

func openTestEnv(t *testing.T) *kv.Env {
	t.Helper()
	env, err := kv.Open(t.TempDir(), kv.DefaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = env.Close() })
	if err := Ensure(env); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	return env
}

func TestEnsureSeedsCountersAndVersion(t *testing.T) {
	env := openTestEnv(t)
	var version string
	var nextTerm uint64
	if err := env.ReadTx(func(tx kv.Tx) error {
		var err error
		version, err = GetVersion(tx)
		if err != nil {
			return err
		}
		nextTerm, err = PeekNextTermID(tx)
		return err
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if version != CurrentVersion {
		t.Errorf("expected version %q, got %q", CurrentVersion, version)
	}
	if nextTerm != 1 {
		t.Errorf("expected next term id to start at 1, got %d", nextTerm)
	}
}

func TestNextTermIDIsMonotoneAndPersists(t *testing.T) {
	env := openTestEnv(t)
	var first, second uint64
	if err := env.WriteTx(func(tx kv.Tx) error {
		var err error
		first, err = NextTermID(tx)
		return err
	}); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := env.WriteTx(func(tx kv.Tx) error {
		var err error
		second, err = NextTermID(tx)
		return err
	}); err != nil {
		t.Fatalf("second: %v", err)
	}
	if second != first+1 {
		t.Errorf("expected consecutive ids, got %d then %d", first, second)
	}
}

func TestTouchStampsBothKeysAtomically(t *testing.T) {
	env := openTestEnv(t)
	now := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if err := env.WriteTx(func(tx kv.Tx) error {
		return Touch(tx, KeyQuadsLastModified, now)
	}); err != nil {
		t.Fatalf("touch: %v", err)
	}

	if err := env.ReadTx(func(tx kv.Tx) error {
		quadsTime, ok, err := GetTimestamp(tx, KeyQuadsLastModified)
		if err != nil {
			return err
		}
		if !ok || !quadsTime.Equal(now) {
			t.Errorf("expected Quads-Last-Modified to equal %v, got %v (ok=%v)", now, quadsTime, ok)
		}
		lastModified, ok, err := GetTimestamp(tx, KeyLastModified)
		if err != nil {
			return err
		}
		if !ok || !lastModified.Equal(now) {
			t.Errorf("expected Last-Modified to equal %v, got %v (ok=%v)", now, lastModified, ok)
		}
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
}

func TestGetTimestampNeverSetReturnsNotOK(t *testing.T) {
	env := openTestEnv(t)
	if err := env.ReadTx(func(tx kv.Tx) error {
		_, ok, err := GetTimestamp(tx, KeyIndexLastModified)
		if err != nil {
			return err
		}
		if ok {
			t.Error("expected ok=false for a timestamp that was never stamped")
		}
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
}

func TestSetAndClearPrefixes(t *testing.T) {
	env := openTestEnv(t)
	if err := env.WriteTx(func(tx kv.Tx) error {
		return SetPrefix(tx, "foaf", "http://xmlns.com/foaf/0.1/")
	}); err != nil {
		t.Fatalf("set prefix: %v", err)
	}

	if err := env.ReadTx(func(tx kv.Tx) error {
		iri, err := GetPrefix(tx, "foaf")
		if err != nil {
			return err
		}
		if iri != "http://xmlns.com/foaf/0.1/" {
			t.Errorf("expected foaf namespace, got %q", iri)
		}
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := ClearPrefixes(env); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := env.ReadTx(func(tx kv.Tx) error {
		all, err := ListPrefixes(tx)
		if err != nil {
			return err
		}
		if len(all) != 0 {
			t.Errorf("expected no prefixes after clear, got %v", all)
		}
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
}
