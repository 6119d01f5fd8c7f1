package camera

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snapstrip/internal/testutil"
)

// blockingOpen returns an OpenFunc that waits on release before
// settling with the given source and error.
func blockingOpen(release <-chan struct{}, src Source, err error) OpenFunc {
	return func(ctx context.Context, _ Constraints) (Source, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return src, err
	}
}

func instantOpen(src Source, err error) OpenFunc {
	return func(_ context.Context, _ Constraints) (Source, error) {
		return src, err
	}
}

func TestAcquire_StartsPending(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	a := Acquire(context.Background(), blockingOpen(release, nil, nil), DefaultConstraints())
	assert.Equal(t, StatePending, a.State(), "acquisition is pending until the prompt settles")
	assert.Nil(t, a.Source())
	assert.NoError(t, a.Err())
}

func TestAcquire_Ready(t *testing.T) {
	src := NewStaticSource(testutil.SolidImage(4, 4, color.White))

	a := Acquire(context.Background(), instantOpen(src, nil), DefaultConstraints())

	got, err := a.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, Source(src), got)
	assert.Equal(t, StateReady, a.State())
}

func TestAcquire_Denied(t *testing.T) {
	a := Acquire(context.Background(), instantOpen(nil, ErrPermissionDenied), DefaultConstraints())

	_, err := a.Wait(context.Background())
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, StateDenied, a.State())
	assert.ErrorIs(t, a.Err(), ErrPermissionDenied)
}

func TestAcquire_DeviceUnavailableIsDenied(t *testing.T) {
	a := Acquire(context.Background(), instantOpen(nil, ErrDeviceUnavailable), DefaultConstraints())

	_, err := a.Wait(context.Background())
	require.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, StateDenied, a.State())
}

func TestRelease_ClosesReadySource(t *testing.T) {
	src := NewStaticSource(testutil.SolidImage(4, 4, color.White))
	a := Acquire(context.Background(), instantOpen(src, nil), DefaultConstraints())
	_, err := a.Wait(context.Background())
	require.NoError(t, err)

	a.Release()
	assert.True(t, src.Closed(), "release stops the attached stream")
	assert.Nil(t, a.Source())
}

func TestRelease_Idempotent(t *testing.T) {
	src := NewStaticSource(testutil.SolidImage(4, 4, color.White))
	a := Acquire(context.Background(), instantOpen(src, nil), DefaultConstraints())
	_, err := a.Wait(context.Background())
	require.NoError(t, err)

	a.Release()
	a.Release()
	a.Release()
	assert.True(t, src.Closed())
	assert.True(t, a.Released())
}

func TestRelease_BeforeSettle_ClosesLateSource(t *testing.T) {
	// Consumer tears down before the permission prompt settles. The
	// late-arriving stream must be released, never attached.
	release := make(chan struct{})
	src := NewStaticSource(testutil.SolidImage(4, 4, color.White))

	a := Acquire(context.Background(), blockingOpen(release, src, nil), DefaultConstraints())
	a.Release()
	close(release)

	_, err := a.Wait(context.Background())
	require.ErrorIs(t, err, ErrReleased)

	require.Eventually(t, src.Closed, time.Second, time.Millisecond,
		"late source must be closed after teardown")
	assert.Nil(t, a.Source(), "late source must not attach")
}

func TestWait_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	a := Acquire(context.Background(), blockingOpen(release, nil, nil), DefaultConstraints())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSource_ServesDecodedImage(t *testing.T) {
	src := &FileSource{img: testutil.SolidImage(8, 6, color.White)}

	img, err := src.Grab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	require.NoError(t, src.Close())
	_, err = src.Grab(context.Background())
	assert.Error(t, err, "grab after close fails")
	assert.NoError(t, src.Close(), "close is idempotent")
}

func TestStaticSource_FailingGrab(t *testing.T) {
	boom := errors.New("boom")
	src := NewFailingSource(boom)

	_, err := src.Grab(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, src.Grabs())
}
