package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLockerSerializesSameKey(t *testing.T) {
	locker := NewMemoryLocker()

	release, err := locker.Acquire(context.Background(), "ticket:t1")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(ctx, "ticket:t1"); CodeOf(err) != FailureBusy {
		t.Fatalf("expected BUSY while held, got %v", err)
	}

	release()

	release, err = locker.Acquire(context.Background(), "ticket:t1")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release()
}

func TestMemoryLockerIndependentKeys(t *testing.T) {
	locker := NewMemoryLocker()

	releaseA, err := locker.Acquire(context.Background(), "ticket:t1")
	if err != nil {
		t.Fatalf("acquire t1: %v", err)
	}
	releaseB, err := locker.Acquire(context.Background(), "milestone:m1")
	if err != nil {
		t.Fatalf("acquire m1 while t1 held: %v", err)
	}
	releaseA()
	releaseB()
}

func TestMemoryLockerUnderContention(t *testing.T) {
	locker := NewMemoryLocker()

	var (
		wg      sync.WaitGroup
		holders int
		max     int
		mu      sync.Mutex
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "ticket:t1")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			holders++
			if holders > max {
				max = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if max != 1 {
		t.Fatalf("lock admitted %d concurrent holders", max)
	}
}
