package ordernum

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"
)

var numberFormat = regexp.MustCompile(`^ORD-\d{8}-\d{4}$`)

func TestNextFormat(t *testing.T) {
	g := NewGenerator(NewMemorySequencer())
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)

	got, err := g.Next(context.Background(), now)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got != "ORD-20260301-0001" {
		t.Errorf("Next() = %q, want ORD-20260301-0001", got)
	}
	if !numberFormat.MatchString(got) {
		t.Errorf("Next() = %q does not match ORD-YYYYMMDD-NNNN", got)
	}
}

func TestNextSequencePerDay(t *testing.T) {
	g := NewGenerator(NewMemorySequencer())
	ctx := context.Background()
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	first, _ := g.Next(ctx, day1)
	second, _ := g.Next(ctx, day1)
	nextDay, _ := g.Next(ctx, day2)

	if first != "ORD-20260301-0001" || second != "ORD-20260301-0002" {
		t.Errorf("same-day sequence = %q, %q", first, second)
	}
	// 序列按天归零
	if nextDay != "ORD-20260302-0001" {
		t.Errorf("next-day number = %q, want ORD-20260302-0001", nextDay)
	}
}

func TestNextUniqueUnderConcurrency(t *testing.T) {
	g := NewGenerator(NewMemorySequencer())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	const n = 200
	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := g.Next(context.Background(), now)
			if err != nil {
				t.Errorf("Next() error = %v", err)
				return
			}
			results <- num
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, n)
	for num := range results {
		if seen[num] {
			t.Fatalf("duplicate order number %q", num)
		}
		seen[num] = true
		if !numberFormat.MatchString(num) {
			t.Errorf("bad format %q", num)
		}
	}
	if len(seen) != n {
		t.Errorf("got %d unique numbers, want %d", len(seen), n)
	}
}

func TestSeedNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	re := regexp.MustCompile(`^ORD-20260301-[0-9A-F]{6}$`)
	for i := 0; i < 10; i++ {
		if got := SeedNumber(now); !re.MatchString(got) {
			t.Fatalf("SeedNumber() = %q, want ORD-YYYYMMDD-XXXXXX (uppercase hex)", got)
		}
	}
}
