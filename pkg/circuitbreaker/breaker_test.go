package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/go_cart/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("down")

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New[int](Config{Name: "test", FailureThreshold: 2, Timeout: time.Hour}, logger.Nop())
	ctx := context.Background()
	calls := 0
	fail := func(context.Context) (int, error) {
		calls++
		return 0, errDown
	}

	_, err := b.Execute(ctx, fail)
	assert.ErrorIs(t, err, errDown)
	_, err = b.Execute(ctx, fail)
	assert.ErrorIs(t, err, errDown)

	_, err = b.Execute(ctx, fail)
	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", b.State())
}

func TestBreaker_HalfOpenTrialCloses(t *testing.T) {
	b := New[string](Config{Name: "test", FailureThreshold: 1, Timeout: 20 * time.Millisecond}, logger.Nop())
	ctx := context.Background()

	_, err := b.Execute(ctx, func(context.Context) (string, error) { return "", errDown })
	require.ErrorIs(t, err, errDown)
	require.Equal(t, "open", b.State())

	require.Eventually(t, func() bool { return b.State() == "half-open" }, time.Second, 5*time.Millisecond)

	res, err := b.Execute(ctx, func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	b := New[int](Config{Name: "test", FailureThreshold: 1}, logger.Nop())

	_, err := b.Execute(context.Background(), func(context.Context) (int, error) { return 0, context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_PassesContext(t *testing.T) {
	b := New[int](Config{Name: "test"}, logger.Nop())
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, 7)

	v, err := b.Execute(ctx, func(ctx context.Context) (int, error) { return ctx.Value(key{}).(int), nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
