package quote

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memorySequence is an in-memory SequenceSource with the same atomicity
// contract as the SQLite implementation.
type memorySequence struct {
	mu   sync.Mutex
	seqs map[string]int
}

func newMemorySequence() *memorySequence {
	return &memorySequence{seqs: map[string]int{}}
}

func (m *memorySequence) NextSequenceForDate(_ context.Context, date string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seqs[date]++
	return m.seqs[date], nil
}

type failingSequence struct{}

func (failingSequence) NextSequenceForDate(context.Context, string) (int, error) {
	return 0, fmt.Errorf("sequence store down")
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNextFormat(t *testing.T) {
	gen := NewNumberGenerator(newMemorySequence())
	gen.now = fixedClock(time.Date(2026, time.August, 29, 10, 30, 0, 0, time.UTC))

	number, err := gen.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if number != "QT-20260829-0001" {
		t.Fatalf("number=%q", number)
	}

	number, err = gen.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if number != "QT-20260829-0002" {
		t.Fatalf("number=%q", number)
	}
}

func TestNextSequenceResetsPerDay(t *testing.T) {
	gen := NewNumberGenerator(newMemorySequence())

	gen.now = fixedClock(time.Date(2026, time.August, 29, 23, 0, 0, 0, time.UTC))
	first, err := gen.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}

	gen.now = fixedClock(time.Date(2026, time.August, 30, 1, 0, 0, 0, time.UTC))
	second, err := gen.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}

	if first != "QT-20260829-0001" || second != "QT-20260830-0001" {
		t.Fatalf("first=%q second=%q", first, second)
	}
}

func TestNextConcurrentCallersGetDistinctNumbers(t *testing.T) {
	gen := NewNumberGenerator(newMemorySequence())
	gen.now = fixedClock(time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC))

	const callers = 50
	numbers := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := gen.Next(context.Background())
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			numbers <- number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]struct{}{}
	for number := range numbers {
		if _, dup := seen[number]; dup {
			t.Fatalf("duplicate number %s", number)
		}
		seen[number] = struct{}{}
	}
	if len(seen) != callers {
		t.Fatalf("got %d distinct numbers, want %d", len(seen), callers)
	}
}

func TestNextWrapsSequenceError(t *testing.T) {
	gen := NewNumberGenerator(failingSequence{})
	if _, err := gen.Next(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
