package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/utils/retry"
)

func TestDo_StopsWhenDone(t *testing.T) {
	ctx := context.Background()

	calls := 0
	v, err := retry.Do(ctx, retry.Constant(5, time.Millisecond),
		func(ctx context.Context) (string, bool, error) {
			calls++
			if calls == 3 {
				return "found", true, nil
			}
			return "", false, nil
		})

	gt.NoError(t, err)
	gt.Value(t, v).Equal("found")
	gt.Number(t, calls).Equal(3)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	ctx := context.Background()

	calls := 0
	_, err := retry.Do(ctx, retry.Constant(3, time.Millisecond),
		func(ctx context.Context) (int, bool, error) {
			calls++
			return 0, false, nil
		})

	gt.Error(t, err)
	if !errors.Is(err, retry.ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
	gt.Number(t, calls).Equal(3)
}

func TestDo_AbortsOnError(t *testing.T) {
	ctx := context.Background()

	boom := errors.New("boom")
	calls := 0
	_, err := retry.Do(ctx, retry.Constant(5, time.Millisecond),
		func(ctx context.Context) (int, bool, error) {
			calls++
			return 0, false, boom
		})

	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	gt.Number(t, calls).Equal(1)
}

func TestDo_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := retry.Do(ctx, retry.Constant(10, time.Hour),
		func(ctx context.Context) (int, bool, error) {
			calls++
			cancel()
			return 0, false, nil
		})

	gt.Error(t, err)
	gt.Number(t, calls).Equal(1)
}

func TestDo_ExponentialDelaysGrow(t *testing.T) {
	ctx := context.Background()

	start := time.Now()
	_, err := retry.Do(ctx, retry.Exponential(3, 10*time.Millisecond, 100*time.Millisecond),
		func(ctx context.Context) (int, bool, error) {
			return 0, false, nil
		})

	if !errors.Is(err, retry.ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
	// 10ms + 20ms between three attempts
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("delays did not accumulate: %v", elapsed)
	}
}
