package reset

import (
	"context"
	"sync"
	"testing"
	"time"

	"marketplace-identity/internal/reset/domain"
)

func testCode(email, code string, expiresAt time.Time) domain.VerificationCode {
	return domain.VerificationCode{Code: code, Email: email, ExpiresAt: expiresAt}
}

func TestMemoryStore_PutAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(15 * time.Minute)

	if err := store.Put(ctx, testCode("user@example.com", "123456", expiresAt)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := store.Get(ctx, "user@example.com")
	if !ok {
		t.Fatal("Get should return the code after Put")
	}
	if got.Code != "123456" {
		t.Errorf("code = %q, want %q", got.Code, "123456")
	}
}

func TestMemoryStore_Get_ReturnsFalseWhenMissing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, ok := store.Get(ctx, "nobody@example.com"); ok {
		t.Error("Get should return false when no code is stored")
	}
}

func TestMemoryStore_PutReplacesPreviousCode(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(15 * time.Minute)

	_ = store.Put(ctx, testCode("user@example.com", "111111", expiresAt))
	_ = store.Put(ctx, testCode("user@example.com", "222222", expiresAt))

	got, ok := store.Get(ctx, "user@example.com")
	if !ok {
		t.Fatal("Get should return the replacement code")
	}
	if got.Code != "222222" {
		t.Errorf("code = %q, want the later put %q", got.Code, "222222")
	}
}

func TestMemoryStore_EvictsAfterLifetime(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	store.nowF = func() time.Time { return now }

	_ = store.Put(ctx, testCode("user@example.com", "123456", now.Add(15*time.Minute)))

	// Still live just before eviction.
	now = now.Add(14 * time.Minute)
	if _, ok := store.Get(ctx, "user@example.com"); !ok {
		t.Fatal("code should still be stored before its lifetime passes")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get(ctx, "user@example.com"); ok {
		t.Error("code should be evicted after its lifetime passes")
	}
	// Evicted entry stays gone.
	if _, ok := store.Get(ctx, "user@example.com"); ok {
		t.Error("evicted entry should not reappear")
	}
}

func TestMemoryStore_UsedCodeRemainsUntilEviction(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	store.nowF = func() time.Time { return now }

	code := testCode("user@example.com", "123456", now.Add(15*time.Minute))
	_ = store.Put(ctx, code.MarkUsed())

	got, ok := store.Get(ctx, "user@example.com")
	if !ok {
		t.Fatal("used code should remain stored until its lifetime passes")
	}
	if !got.Used {
		t.Error("stored code should carry the used flag")
	}
}

func TestMemoryStore_ExpiredCodeGetsMinimumLifetime(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	store.nowF = func() time.Time { return now }

	// Writing back a code at the end of its life keeps it observable for a
	// minute instead of evicting it immediately.
	_ = store.Put(ctx, testCode("user@example.com", "123456", now))

	now = now.Add(30 * time.Second)
	if _, ok := store.Get(ctx, "user@example.com"); !ok {
		t.Error("code should survive for the one-minute floor")
	}
	now = now.Add(31 * time.Second)
	if _, ok := store.Get(ctx, "user@example.com"); ok {
		t.Error("code should be evicted after the floor passes")
	}
}

func TestMemoryStore_ClockAdvancesBetweenReads(t *testing.T) {
	store := NewMemoryStore()

	t1 := store.nowF()
	time.Sleep(10 * time.Millisecond)
	t2 := store.nowF()
	if !t2.After(t1) {
		t.Fatalf("store clock did not advance: %v then %v", t1, t2)
	}
}

func TestMemoryStore_LifetimeRoundsUpToExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	store.nowF = func() time.Time { return now }

	// A write-back mid-life (13m20s remaining) must not be evicted before
	// the code's own expiry.
	_ = store.Put(ctx, testCode("user@example.com", "123456", now.Add(13*time.Minute+20*time.Second)))

	now = now.Add(13*time.Minute + 30*time.Second)
	if _, ok := store.Get(ctx, "user@example.com"); !ok {
		t.Fatal("code should outlive its expiry, not be evicted before it")
	}

	now = now.Add(time.Minute)
	if _, ok := store.Get(ctx, "user@example.com"); ok {
		t.Error("code should be evicted once the rounded-up lifetime passes")
	}
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(15 * time.Minute)

	_ = store.Put(ctx, testCode("user@example.com", "123456", expiresAt))
	if err := store.Delete(ctx, "user@example.com"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := store.Get(ctx, "user@example.com"); ok {
		t.Error("Get should return false after Delete")
	}
	if err := store.Delete(ctx, "user@example.com"); err != nil {
		t.Errorf("deleting a missing entry: %v", err)
	}
}

func TestMemoryStore_Exists(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(15 * time.Minute)

	ok, err := store.Exists(ctx, "user@example.com")
	if err != nil || ok {
		t.Errorf("Exists before Put = %v, %v; want false, nil", ok, err)
	}
	_ = store.Put(ctx, testCode("user@example.com", "123456", expiresAt))
	ok, err = store.Exists(ctx, "user@example.com")
	if err != nil || !ok {
		t.Errorf("Exists after Put = %v, %v; want true, nil", ok, err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(15 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			email := "user-" + string(rune('0'+id)) + "@example.com"
			_ = store.Put(ctx, testCode(email, "123456", expiresAt))
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			email := "user-" + string(rune('0'+id)) + "@example.com"
			store.Get(ctx, email)
		}(i)
	}
	wg.Wait()
}
