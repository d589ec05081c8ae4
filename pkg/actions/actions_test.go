package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/core/mocks"
	"github.com/devicelab-dev/wallet-e2e/pkg/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	pinInput  = core.ByID("com.wallet.crypto.trustapp:id/pin_input")
	firstWord = core.ByID("com.wallet.crypto.trustapp:id/seed_word")
	copyBtn   = core.ByID("com.wallet.crypto.trustapp:id/copy_button")
)

func newActions(t *testing.T) (*Actions, *mocks.MockDriver, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	driver := mocks.NewMockDriver(ctrl)
	w := wait.New(driver, wait.WithInterval(time.Millisecond), wait.WithTimeouts(50*time.Millisecond, 10*time.Millisecond, 100*time.Millisecond))
	return New(w), driver, ctrl
}

func TestSwipeCoordinates(t *testing.T) {
	size := core.Size{Width: 1080, Height: 2400}

	tests := []struct {
		dir        Direction
		start, end core.Point
	}{
		{Up, core.Point{X: 540, Y: 1920}, core.Point{X: 540, Y: 480}},
		{Down, core.Point{X: 540, Y: 480}, core.Point{X: 540, Y: 1920}},
		{Left, core.Point{X: 864, Y: 1200}, core.Point{X: 216, Y: 1200}},
		{Right, core.Point{X: 216, Y: 1200}, core.Point{X: 864, Y: 1200}},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			start, end, err := SwipeCoordinates(size, tt.dir)
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestSwipeCoordinates_TruncatesOddSizes(t *testing.T) {
	start, end, err := SwipeCoordinates(core.Size{Width: 721, Height: 1279}, Up)
	require.NoError(t, err)
	assert.Equal(t, core.Point{X: 360, Y: 1023}, start)
	assert.Equal(t, core.Point{X: 360, Y: 255}, end)
}

func TestSwipeCoordinates_UnknownDirection(t *testing.T) {
	_, _, err := SwipeCoordinates(core.Size{Width: 100, Height: 100}, Direction("diagonal"))
	assert.Error(t, err)
}

func TestSwipeDirection(t *testing.T) {
	a, driver, _ := newActions(t)

	driver.EXPECT().WindowSize().Return(core.Size{Width: 1080, Height: 2400}, nil)
	driver.EXPECT().Perform(core.Gesture{
		Start: core.Point{X: 540, Y: 1920},
		End:   &core.Point{X: 540, Y: 480},
		Hold:  SwipeHold,
	}).Return(nil)

	require.NoError(t, a.SwipeDirection(context.Background(), Up))
}

func TestSwipe_ElementToElement(t *testing.T) {
	a, driver, ctrl := newActions(t)
	from := mocks.NewMockElement(ctrl)
	to := mocks.NewMockElement(ctrl)

	driver.EXPECT().FindElement(firstWord).Return(from, nil)
	driver.EXPECT().FindElement(copyBtn).Return(to, nil)
	from.EXPECT().IsDisplayed().Return(true, nil)
	to.EXPECT().IsDisplayed().Return(true, nil)
	from.EXPECT().Rect().Return(core.Bounds{X: 0, Y: 100, Width: 200, Height: 50}, nil)
	to.EXPECT().Rect().Return(core.Bounds{X: 400, Y: 900, Width: 100, Height: 100}, nil)
	driver.EXPECT().Perform(core.Gesture{
		Start: core.Point{X: 100, Y: 125},
		End:   &core.Point{X: 450, Y: 950},
		Hold:  500 * time.Millisecond,
	}).Return(nil)

	require.NoError(t, a.Swipe(context.Background(), firstWord, copyBtn))
}

func TestEnterText_ClearsThenTypes(t *testing.T) {
	a, driver, ctrl := newActions(t)
	el := mocks.NewMockElement(ctrl)

	driver.EXPECT().FindElement(pinInput).Return(el, nil)
	el.EXPECT().IsDisplayed().Return(true, nil)
	gomock.InOrder(
		el.EXPECT().Clear().Return(nil),
		el.EXPECT().SendKeys("123456").Return(nil),
	)

	require.NoError(t, a.EnterText(context.Background(), pinInput, "123456"))
}

func TestEnterText_ClearFailureStopsTyping(t *testing.T) {
	a, driver, ctrl := newActions(t)
	el := mocks.NewMockElement(ctrl)

	driver.EXPECT().FindElement(pinInput).Return(el, nil)
	el.EXPECT().IsDisplayed().Return(true, nil)
	el.EXPECT().Clear().Return(core.ErrStaleElement)

	err := a.EnterText(context.Background(), pinInput, "123456")
	require.ErrorIs(t, err, core.ErrStaleElement)
}

func TestClearText(t *testing.T) {
	a, driver, ctrl := newActions(t)
	el := mocks.NewMockElement(ctrl)

	driver.EXPECT().FindElement(pinInput).Return(el, nil)
	el.EXPECT().IsDisplayed().Return(true, nil)
	el.EXPECT().Clear().Return(nil)

	require.NoError(t, a.ClearText(context.Background(), pinInput))
}

func TestClearText_Failure(t *testing.T) {
	a, driver, ctrl := newActions(t)
	el := mocks.NewMockElement(ctrl)

	driver.EXPECT().FindElement(pinInput).Return(el, nil)
	el.EXPECT().IsDisplayed().Return(true, nil)
	el.EXPECT().Clear().Return(core.ErrStaleElement)

	err := a.ClearText(context.Background(), pinInput)
	require.ErrorIs(t, err, core.ErrStaleElement)
}

func TestTap_WaitsForClickable(t *testing.T) {
	a, driver, ctrl := newActions(t)
	el := mocks.NewMockElement(ctrl)

	driver.EXPECT().FindElement(copyBtn).Return(el, nil)
	el.EXPECT().IsDisplayed().Return(true, nil)
	el.EXPECT().IsEnabled().Return(true, nil)
	el.EXPECT().Click().Return(nil)

	require.NoError(t, a.Tap(context.Background(), copyBtn))
}

func TestTap_Timeout(t *testing.T) {
	a, driver, _ := newActions(t)
	driver.EXPECT().FindElement(copyBtn).Return(nil, core.ErrElementNotFound).AnyTimes()

	err := a.Tap(context.Background(), copyBtn)
	require.ErrorIs(t, err, core.ErrWaitTimeout)
}

func TestReadText(t *testing.T) {
	a, driver, ctrl := newActions(t)
	el := mocks.NewMockElement(ctrl)

	driver.EXPECT().FindElement(firstWord).Return(el, nil)
	el.EXPECT().IsDisplayed().Return(true, nil)
	el.EXPECT().Text().Return("abandon", nil)

	text, err := a.ReadText(context.Background(), firstWord)
	require.NoError(t, err)
	assert.Equal(t, "abandon", text)
}

func TestLongPress(t *testing.T) {
	a, driver, ctrl := newActions(t)
	el := mocks.NewMockElement(ctrl)

	driver.EXPECT().FindElement(copyBtn).Return(el, nil)
	el.EXPECT().IsDisplayed().Return(true, nil)
	el.EXPECT().Rect().Return(core.Bounds{X: 10, Y: 10, Width: 20, Height: 20}, nil)
	driver.EXPECT().Perform(core.Gesture{Start: core.Point{X: 20, Y: 20}, Hold: 2 * time.Second}).Return(nil)

	require.NoError(t, a.LongPress(context.Background(), copyBtn, 2*time.Second))
}

func TestExists(t *testing.T) {
	a, driver, ctrl := newActions(t)
	el := mocks.NewMockElement(ctrl)

	gomock.InOrder(
		driver.EXPECT().FindElement(copyBtn).Return(el, nil),
		driver.EXPECT().FindElement(copyBtn).Return(nil, core.ErrElementNotFound),
		driver.EXPECT().FindElement(copyBtn).Return(nil, errors.New("connection reset")),
	)

	assert.True(t, a.Exists(copyBtn))
	assert.False(t, a.Exists(copyBtn))
	assert.False(t, a.Exists(copyBtn))
}

func TestIsDisplayed(t *testing.T) {
	a, driver, ctrl := newActions(t)
	el := mocks.NewMockElement(ctrl)

	driver.EXPECT().FindElement(copyBtn).Return(el, nil).Times(3)
	gomock.InOrder(
		el.EXPECT().IsDisplayed().Return(true, nil),
		el.EXPECT().IsDisplayed().Return(false, nil),
		el.EXPECT().IsDisplayed().Return(false, core.ErrStaleElement),
	)

	assert.True(t, a.IsDisplayed(copyBtn))
	assert.False(t, a.IsDisplayed(copyBtn))
	assert.False(t, a.IsDisplayed(copyBtn))
}
