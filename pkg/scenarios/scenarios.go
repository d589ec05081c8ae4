// Package scenarios holds the scripted create-wallet flows and the runner
// that executes them against fresh sessions.
package scenarios

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
	"github.com/devicelab-dev/wallet-e2e/pkg/pages"
)

// Severity levels, as reported to Allure.
const (
	SeverityCritical = "critical"
	SeverityNormal   = "normal"
)

// Labels shared by every create-wallet scenario.
const (
	Epic    = "Wallet Management"
	Feature = "Wallet Creation"
)

// Fixed inputs.
const (
	PIN         = "123456"
	WrongPIN    = "654321"
	SeedWordLen = 12
)

// Scenario is a parameterless scripted flow.
type Scenario struct {
	Name        string
	Description string
	Severity    string
	Story       string
	Run         func(ctx context.Context, page *pages.CreateWalletPage) error
}

var registry = []Scenario{
	{
		Name:        "create-wallet-happy-path",
		Description: "Tests the complete wallet creation flow with valid inputs",
		Severity:    SeverityCritical,
		Story:       "User can create a new wallet following all steps correctly",
		Run:         happyPath,
	},
	{
		Name:        "terms-required",
		Description: "Tests that the Next button does nothing until Terms and Conditions are accepted",
		Severity:    SeverityNormal,
		Story:       "User cannot proceed without accepting Terms and Conditions",
		Run:         termsRequired,
	},
	{
		Name:        "invalid-seed-confirmation",
		Description: "Tests that incorrect seed phrase confirmation is rejected",
		Severity:    SeverityCritical,
		Story:       "User must enter correct seed phrase during confirmation",
		Run:         invalidSeedConfirmation,
	},
	{
		Name:        "pin-mismatch",
		Description: "Tests that mismatched PINs are rejected",
		Severity:    SeverityCritical,
		Story:       "User must enter matching PINs during setup",
		Run:         pinMismatch,
	},
}

// All returns the registered scenarios in execution order.
func All() []Scenario {
	return slices.Clone(registry)
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, sc := range registry {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

// Select returns the named scenarios in the given order, or all of them
// when names is empty.
func Select(names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return All(), nil
	}
	out := make([]Scenario, 0, len(names))
	var unknown []string
	for _, name := range names {
		sc, ok := Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, sc)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown scenario(s): %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// precondition is checked before every scenario.
func precondition(page *pages.CreateWalletPage) error {
	if !page.IsPageLoaded() {
		return core.Assertf(true, false, "%s page is not loaded", page.Name())
	}
	return nil
}

// revealWords accepts terms, proceeds and reveals the seed phrase.
func revealWords(ctx context.Context, page *pages.CreateWalletPage) ([]string, error) {
	if err := page.AcceptTerms(ctx); err != nil {
		return nil, err
	}
	if err := page.Proceed(ctx); err != nil {
		return nil, err
	}
	return page.RevealSeedPhrase(ctx)
}

// setPins enters first then second, pressing continue after each.
func setPins(ctx context.Context, page *pages.CreateWalletPage, first, second string) error {
	for _, pin := range []string{first, second} {
		if err := page.EnterPin(ctx, pin); err != nil {
			return err
		}
		if err := page.Continue(ctx); err != nil {
			return err
		}
	}
	return nil
}

func happyPath(ctx context.Context, page *pages.CreateWalletPage) error {
	words, err := revealWords(ctx, page)
	if err != nil {
		return err
	}
	if len(words) != SeedWordLen {
		return core.Assertf(SeedWordLen, len(words), "seed phrase should contain %d words", SeedWordLen)
	}

	if err := page.CopySeedPhrase(ctx); err != nil {
		return err
	}
	if err := page.Proceed(ctx); err != nil {
		return err
	}
	if err := page.ConfirmSeedPhrase(ctx, words); err != nil {
		return err
	}
	if err := page.Continue(ctx); err != nil {
		return err
	}
	if err := setPins(ctx, page, PIN, PIN); err != nil {
		return err
	}

	if !page.IsWalletCreationSuccessful(ctx) {
		return core.Assertf(pages.StateSuccess.String(), page.CurrentState().String(),
			"wallet creation was not successful")
	}
	logger.Info("Wallet creation happy path completed")
	return nil
}

func termsRequired(ctx context.Context, page *pages.CreateWalletPage) error {
	if err := page.Proceed(ctx); err != nil {
		return err
	}
	if !page.IsPageLoaded() {
		return core.Assertf(pages.StateTerms.String(), page.CurrentState().String(),
			"user was able to proceed without accepting terms and conditions")
	}

	words, err := revealWords(ctx, page)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return core.Assertf("> 0", 0, "failed to reach the seed phrase screen after accepting terms")
	}
	return nil
}

func invalidSeedConfirmation(ctx context.Context, page *pages.CreateWalletPage) error {
	words, err := revealWords(ctx, page)
	if err != nil {
		return err
	}
	if err := page.Proceed(ctx); err != nil {
		return err
	}

	reversed := slices.Clone(words)
	slices.Reverse(reversed)
	if err := page.ConfirmSeedPhrase(ctx, reversed); err != nil {
		return err
	}
	if err := page.Continue(ctx); err != nil {
		return err
	}

	return expectError(ctx, page, "incorrect")
}

func pinMismatch(ctx context.Context, page *pages.CreateWalletPage) error {
	words, err := revealWords(ctx, page)
	if err != nil {
		return err
	}
	if err := page.Proceed(ctx); err != nil {
		return err
	}
	if err := page.ConfirmSeedPhrase(ctx, words); err != nil {
		return err
	}
	if err := page.Continue(ctx); err != nil {
		return err
	}
	if err := setPins(ctx, page, PIN, WrongPIN); err != nil {
		return err
	}

	return expectError(ctx, page, "match")
}

// expectError asserts the on-screen error message contains want.
func expectError(ctx context.Context, page *pages.CreateWalletPage, want string) error {
	msg, err := page.ErrorMessage(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(msg, want) {
		return core.Assertf(want, msg, "expected error message containing %q, got %q", want, msg)
	}
	return nil
}
