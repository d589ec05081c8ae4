package pages_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/actions"
	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/driver/appium"
	"github.com/devicelab-dev/wallet-e2e/pkg/driver/mock"
	"github.com/devicelab-dev/wallet-e2e/pkg/pages"
	"github.com/devicelab-dev/wallet-e2e/pkg/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPage(t *testing.T) *pages.CreateWalletPage {
	t.Helper()
	srv := httptest.NewServer(mock.NewServer(mock.AppConfig{}))
	t.Cleanup(srv.Close)

	d, err := appium.NewDriver(srv.URL, map[string]interface{}{"platformName": "Android"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Quit() })

	w := wait.New(d,
		wait.WithInterval(10*time.Millisecond),
		wait.WithTimeouts(2*time.Second, 200*time.Millisecond, 5*time.Second))
	return pages.NewCreateWalletPage(actions.New(w), mock.DefaultAppPackage)
}

// toSeedConfirm accepts terms, reveals and moves to confirmation.
func toSeedConfirm(t *testing.T, ctx context.Context, p *pages.CreateWalletPage) []string {
	t.Helper()
	require.NoError(t, p.AcceptTerms(ctx))
	require.NoError(t, p.Proceed(ctx))
	words, err := p.RevealSeedPhrase(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Proceed(ctx))
	return words
}

func TestCreateWalletPage_IsPageLoaded(t *testing.T) {
	p := newPage(t)

	assert.Equal(t, "Create Wallet", p.Name())
	assert.True(t, p.IsPageLoaded())
	assert.Equal(t, pages.StateTerms, p.CurrentState())

	var _ pages.Page = p
}

func TestCreateWalletPage_HappyPath(t *testing.T) {
	ctx := context.Background()
	p := newPage(t)

	require.NoError(t, p.AcceptTerms(ctx))
	require.NoError(t, p.Proceed(ctx))
	assert.Equal(t, pages.StateSeedReveal, p.CurrentState())

	words, err := p.RevealSeedPhrase(ctx)
	require.NoError(t, err)
	assert.Len(t, words, 12)

	again, err := p.SeedPhraseWords(ctx)
	require.NoError(t, err)
	assert.Equal(t, words, again, "reading twice yields the same order")

	require.NoError(t, p.CopySeedPhrase(ctx))
	require.NoError(t, p.Proceed(ctx))
	assert.Equal(t, pages.StateSeedConfirm, p.CurrentState())

	require.NoError(t, p.ConfirmSeedPhrase(ctx, words))
	require.NoError(t, p.Continue(ctx))
	assert.Equal(t, pages.StatePinSetup, p.CurrentState())

	require.NoError(t, p.EnterPin(ctx, "123456"))
	require.NoError(t, p.Continue(ctx))
	assert.Equal(t, pages.StatePinConfirm, p.CurrentState())

	require.NoError(t, p.EnterPin(ctx, "123456"))
	require.NoError(t, p.Continue(ctx))
	assert.Equal(t, pages.StateSuccess, p.CurrentState())
	assert.True(t, p.IsWalletCreationSuccessful(ctx))
}

func TestCreateWalletPage_ContinueWithoutPinStaysOnPinSetup(t *testing.T) {
	ctx := context.Background()
	p := newPage(t)

	words := toSeedConfirm(t, ctx, p)
	require.NoError(t, p.ConfirmSeedPhrase(ctx, words))
	require.NoError(t, p.Continue(ctx))
	require.Equal(t, pages.StatePinSetup, p.CurrentState())

	require.NoError(t, p.Continue(ctx))
	assert.Equal(t, pages.StatePinSetup, p.CurrentState())

	require.NoError(t, p.EnterPin(ctx, "123456"))
	require.NoError(t, p.Continue(ctx))
	assert.Equal(t, pages.StatePinConfirm, p.CurrentState())
}

func TestCreateWalletPage_ProceedWithoutConsent(t *testing.T) {
	ctx := context.Background()
	p := newPage(t)

	require.NoError(t, p.OpenTerms(ctx))
	require.NoError(t, p.Proceed(ctx))
	assert.True(t, p.IsPageLoaded())
	assert.Equal(t, pages.StateTerms, p.CurrentState())
	assert.False(t, p.IsWalletCreationSuccessful(ctx))
}

func TestCreateWalletPage_OrderChangingPermutation(t *testing.T) {
	ctx := context.Background()
	p := newPage(t)

	words := toSeedConfirm(t, ctx, p)
	swapped := append([]string(nil), words...)
	for j := 1; j < len(swapped); j++ {
		if swapped[j] != swapped[0] {
			swapped[0], swapped[j] = swapped[j], swapped[0]
			break
		}
	}
	require.NotEqual(t, words, swapped)

	require.NoError(t, p.ConfirmSeedPhrase(ctx, swapped))
	require.NoError(t, p.Continue(ctx))

	assert.Equal(t, pages.StateError, p.CurrentState())
	msg, err := p.ErrorMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg, "incorrect")
}

func TestCreateWalletPage_PinMismatch(t *testing.T) {
	ctx := context.Background()
	p := newPage(t)

	words := toSeedConfirm(t, ctx, p)
	require.NoError(t, p.ConfirmSeedPhrase(ctx, words))
	require.NoError(t, p.Continue(ctx))
	require.NoError(t, p.EnterPin(ctx, "123456"))
	require.NoError(t, p.Continue(ctx))
	require.NoError(t, p.EnterPin(ctx, "654321"))
	require.NoError(t, p.Continue(ctx))

	assert.Equal(t, pages.StateError, p.CurrentState())
	msg, err := p.ErrorMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg, "match")
}

func TestCreateWalletPage_ErrorMessageTimesOut(t *testing.T) {
	p := newPage(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.ErrorMessage(ctx)
	assert.ErrorIs(t, err, core.ErrWaitTimeout)
}

func TestCreateWalletPage_StepsObserved(t *testing.T) {
	ctx := context.Background()
	p := newPage(t)

	var steps []core.StepResult
	p.Observe(func(s core.StepResult) { steps = append(steps, s) })

	require.NoError(t, p.AcceptTerms(ctx))
	require.NoError(t, p.Proceed(ctx))

	require.Len(t, steps, 2)
	assert.Equal(t, "Accept terms and conditions", steps[0].Name)
	assert.Equal(t, 0, steps[0].Index)
	assert.Equal(t, "Click next button", steps[1].Name)
	assert.Equal(t, 1, steps[1].Index)
	assert.Equal(t, core.StatusPassed, steps[1].Status)
}

func TestBase_SwipeDoesNotTap(t *testing.T) {
	ctx := context.Background()
	p := newPage(t)

	require.NoError(t, p.Swipe(ctx, p.ID("terms_checkbox"), p.ID("next_button")))
	assert.Equal(t, pages.StateTerms, p.CurrentState())

	require.NoError(t, p.Proceed(ctx))
	assert.Equal(t, pages.StateTerms, p.CurrentState(), "swipe over the checkbox must not accept terms")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "PinConfirm", pages.StatePinConfirm.String())
	assert.Equal(t, "Unknown", pages.State(99).String())
}
