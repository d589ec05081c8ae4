package pages

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/wallet-e2e/pkg/actions"
	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
)

// State is a step of the create-wallet flow.
type State int

// Create-wallet states, in flow order. Error is reachable from SeedConfirm
// (wrong word order) and PinConfirm (mismatched PIN).
const (
	StateUnknown State = iota
	StateTerms
	StateSeedReveal
	StateSeedConfirm
	StatePinSetup
	StatePinConfirm
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateTerms:
		return "Terms"
	case StateSeedReveal:
		return "SeedReveal"
	case StateSeedConfirm:
		return "SeedConfirm"
	case StatePinSetup:
		return "PinSetup"
	case StatePinConfirm:
		return "PinConfirm"
	case StateSuccess:
		return "Success"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Resource id names on the create-wallet screens.
const (
	idTermsCheckbox = "terms_checkbox"
	idTermsText     = "terms_text"
	idNext          = "next_button"
	idReveal        = "reveal_phrase_button"
	idSeedContainer = "seed_phrase_container"
	idCopy          = "copy_button"
	idSeedWord      = "seed_word"
	idWordOption    = "word_option"
	idContinue      = "continue_button"
	idPinInput      = "pin_input"
	idErrorMessage  = "error_message"
	idWelcomeBanner = "welcome_banner"
)

// CreateWalletPage drives the create-wallet flow.
type CreateWalletPage struct {
	Base

	// pinSubmits counts Continue presses that submitted an entered PIN, which
	// is how PinSetup and PinConfirm are told apart: both show the same input.
	// The app ignores Continue on an empty PIN field, so only a press after
	// a non-empty EnterPin counts.
	pinSubmits int
	pinPending bool
}

// NewCreateWalletPage creates the page.
func NewCreateWalletPage(act *actions.Actions, appPackage string) *CreateWalletPage {
	return &CreateWalletPage{Base: NewBase(act, appPackage)}
}

// Name implements Page.
func (p *CreateWalletPage) Name() string { return "Create Wallet" }

// IsPageLoaded implements Page: the terms checkbox is displayed.
func (p *CreateWalletPage) IsPageLoaded() bool {
	logger.Info("Checking if Create Wallet page is loaded")
	return p.IsDisplayed(p.ID(idTermsCheckbox))
}

// AcceptTerms ticks the terms checkbox.
func (p *CreateWalletPage) AcceptTerms(ctx context.Context) error {
	return p.step("Accept terms and conditions", func() error {
		p.pinSubmits = 0
		p.pinPending = false
		return p.Tap(ctx, p.ID(idTermsCheckbox))
	})
}

// OpenTerms opens the terms text.
func (p *CreateWalletPage) OpenTerms(ctx context.Context) error {
	return p.step("Open terms and conditions", func() error {
		return p.Tap(ctx, p.ID(idTermsText))
	})
}

// Proceed presses Next. Without consent the app ignores it and stays on Terms,
// so the button is pressed as soon as it is visible, enabled or not.
func (p *CreateWalletPage) Proceed(ctx context.Context) error {
	return p.step("Click next button", func() error {
		return p.Click(ctx, p.ID(idNext))
	})
}

// RevealSeedPhrase taps reveal and returns the ordered seed words.
func (p *CreateWalletPage) RevealSeedPhrase(ctx context.Context) ([]string, error) {
	err := p.step("Reveal seed phrase", func() error {
		return p.Tap(ctx, p.ID(idReveal))
	})
	if err != nil {
		return nil, err
	}
	return p.SeedPhraseWords(ctx)
}

// SeedPhraseWords reads the revealed words in display order. Words are kept
// byte for byte and never logged.
func (p *CreateWalletPage) SeedPhraseWords(ctx context.Context) ([]string, error) {
	var words []string
	err := p.step("Get seed phrase words", func() error {
		if _, err := p.Actions().Waiter().Visible(ctx, p.ID(idSeedContainer)); err != nil {
			return err
		}
		if _, err := p.Actions().Waiter().Visible(ctx, p.ID(idSeedWord)); err != nil {
			return err
		}
		els, err := p.Actions().Waiter().Driver().FindElements(p.ID(idSeedWord))
		if err != nil {
			return fmt.Errorf("find seed words: %w", err)
		}
		words = make([]string, 0, len(els))
		for i, el := range els {
			text, err := el.Text()
			if err != nil {
				return fmt.Errorf("read seed word %d: %w", i+1, err)
			}
			words = append(words, text)
		}
		logger.Info("Read %d seed phrase words", len(words))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return words, nil
}

// CopySeedPhrase taps the copy button.
func (p *CreateWalletPage) CopySeedPhrase(ctx context.Context) error {
	return p.step("Copy seed phrase", func() error {
		return p.Tap(ctx, p.ID(idCopy))
	})
}

// ConfirmSeedPhrase selects, for each word in turn, the first displayed option
// with exactly that text. A word with no matching option is skipped; the app
// then rejects the confirmation on Continue.
func (p *CreateWalletPage) ConfirmSeedPhrase(ctx context.Context, words []string) error {
	return p.step("Confirm seed phrase", func() error {
		option := p.ID(idWordOption)
		if _, err := p.Actions().Waiter().Visible(ctx, option); err != nil {
			return err
		}
		for i, word := range words {
			if err := ctx.Err(); err != nil {
				return err
			}
			picked, err := p.pickOption(option, word)
			if err != nil {
				return fmt.Errorf("select word %d: %w", i+1, err)
			}
			if !picked {
				logger.Warn("No option matches seed word %d", i+1)
			}
		}
		return nil
	})
}

func (p *CreateWalletPage) pickOption(option core.Locator, word string) (bool, error) {
	els, err := p.Actions().Waiter().Driver().FindElements(option)
	if err != nil {
		return false, err
	}
	for _, el := range els {
		displayed, err := el.IsDisplayed()
		if err != nil || !displayed {
			continue
		}
		text, err := el.Text()
		if err != nil || text != word {
			continue
		}
		return true, p.Actions().TapElement(el)
	}
	return false, nil
}

// Continue presses the continue button.
func (p *CreateWalletPage) Continue(ctx context.Context) error {
	return p.step("Click continue button", func() error {
		onPin := p.IsDisplayed(p.ID(idPinInput))
		if err := p.Tap(ctx, p.ID(idContinue)); err != nil {
			return err
		}
		if onPin && p.pinPending {
			p.pinSubmits++
		}
		p.pinPending = false
		return nil
	})
}

// EnterPin types pin into the PIN field.
func (p *CreateWalletPage) EnterPin(ctx context.Context, pin string) error {
	return p.step("Enter PIN", func() error {
		if err := p.Type(ctx, p.ID(idPinInput), pin); err != nil {
			return err
		}
		p.pinPending = pin != ""
		return nil
	})
}

// ErrorMessage returns the error text shown by the app.
func (p *CreateWalletPage) ErrorMessage(ctx context.Context) (string, error) {
	var msg string
	err := p.step("Get error message", func() error {
		var err error
		msg, err = p.Text(ctx, p.ID(idErrorMessage))
		return err
	})
	return msg, err
}

// IsWalletCreationSuccessful reports whether the welcome banner appears
// within the short timeout.
func (p *CreateWalletPage) IsWalletCreationSuccessful(ctx context.Context) bool {
	logger.Info("Checking if wallet creation is successful")
	w := p.Actions().Waiter()
	_, err := w.VisibleFor(ctx, p.ID(idWelcomeBanner), w.Short())
	return err == nil
}

// CurrentState infers the flow state from the screen markers displayed now.
func (p *CreateWalletPage) CurrentState() State {
	switch {
	case p.IsDisplayed(p.ID(idWelcomeBanner)):
		return StateSuccess
	case p.IsDisplayed(p.ID(idErrorMessage)):
		return StateError
	case p.IsDisplayed(p.ID(idPinInput)):
		if p.pinSubmits == 0 {
			return StatePinSetup
		}
		return StatePinConfirm
	case p.IsDisplayed(p.ID(idWordOption)) || p.IsDisplayed(p.ID(idContinue)) && !p.IsDisplayed(p.ID(idNext)):
		return StateSeedConfirm
	case p.IsDisplayed(p.ID(idReveal)) || p.IsDisplayed(p.ID(idSeedContainer)):
		return StateSeedReveal
	case p.IsDisplayed(p.ID(idTermsCheckbox)):
		return StateTerms
	default:
		return StateUnknown
	}
}
