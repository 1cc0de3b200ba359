package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkheadRejectsWhenFull(t *testing.T) {
	b := NewBulkhead(1, "test", "test-service")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(func() error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	err := b.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrBulkheadFull)

	close(release)
	require.NoError(t, <-done)

	// Slot is free again once the holder returns.
	assert.NoError(t, b.Execute(func() error { return nil }))
}

func TestBulkheadPropagatesError(t *testing.T) {
	b := NewBulkhead(1, "test", "test-service")
	wantErr := assert.AnError
	err := b.Execute(func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}
