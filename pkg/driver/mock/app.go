// Package mock simulates the wallet app behind a W3C WebDriver endpoint, so
// pages and scenarios run end to end without a device.
package mock

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tyler-smith/go-bip39"
)

// Messages shown on the error screen.
const (
	MsgSeedIncorrect = "Seed phrase order is incorrect"
	MsgPinMismatch   = "PINs do not match"
)

// DefaultAppPackage is the resource-id prefix of the simulated app.
const DefaultAppPackage = "com.wallet.crypto.trustapp"

// Simulated viewport.
const (
	ScreenWidth  = 1080
	ScreenHeight = 2400
)

// Screen is a step of the create-wallet flow.
type Screen int

// Screens
const (
	ScreenTerms Screen = iota
	ScreenSeedReveal
	ScreenSeedConfirm
	ScreenPinSetup
	ScreenPinConfirm
	ScreenSuccess
	ScreenError
)

var screenNames = map[Screen]string{
	ScreenTerms:       "terms",
	ScreenSeedReveal:  "seed-reveal",
	ScreenSeedConfirm: "seed-confirm",
	ScreenPinSetup:    "pin-setup",
	ScreenPinConfirm:  "pin-confirm",
	ScreenSuccess:     "success",
	ScreenError:       "error",
}

func (s Screen) String() string {
	if name, ok := screenNames[s]; ok {
		return name
	}
	return fmt.Sprintf("screen(%d)", int(s))
}

// Widget names (the part after ":id/").
const (
	wTermsCheckbox  = "terms_checkbox"
	wTermsText      = "terms_text"
	wNext           = "next_button"
	wReveal         = "reveal_phrase_button"
	wSeedContainer  = "seed_phrase_container"
	wCopy           = "copy_button"
	wSeedWord       = "seed_word"
	wWordOption     = "word_option"
	wContinue       = "continue_button"
	wPinInput       = "pin_input"
	wErrorMessage   = "error_message"
	wWelcomeBanner  = "welcome_banner"
	widgetHeight    = 100
	widgetSpacing   = 120
	widgetMarginTop = 200
	widgetMarginX   = 40
)

// AppConfig configures a simulated app instance.
type AppConfig struct {
	// Package is the resource-id prefix. Defaults to DefaultAppPackage.
	Package string
	// Entropy fixes the mnemonic (16 bytes for 12 words). Random when nil.
	Entropy []byte
	// ShuffleSeed fixes the confirmation option order. Random when zero.
	ShuffleSeed uint64
}

// widget is one on-screen element.
type widget struct {
	name      string
	index     int
	text      string
	displayed bool
	enabled   bool
	bounds    rect
}

type rect struct {
	X, Y, Width, Height int
}

func (r rect) contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// elementRef is a handle issued by find; it goes stale on screen change.
type elementRef struct {
	name       string
	index      int
	generation int
}

// App is the create-wallet state machine of one session.
type App struct {
	mu sync.Mutex

	pkg        string
	screen     Screen
	generation int

	accepted    bool
	termsOpened bool
	revealed    bool
	clipboard   string

	words     []string
	options   []string
	picked    []bool
	selection []string

	pinBuffer string
	firstPin  string
	errMsg    string

	refs map[string]elementRef
}

// NewApp starts the app on the terms screen with a fresh mnemonic.
func NewApp(cfg AppConfig) (*App, error) {
	entropy := cfg.Entropy
	if entropy == nil {
		var err error
		if entropy, err = bip39.NewEntropy(128); err != nil {
			return nil, fmt.Errorf("generate entropy: %w", err)
		}
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("generate mnemonic: %w", err)
	}

	pkg := cfg.Package
	if pkg == "" {
		pkg = DefaultAppPackage
	}

	words := strings.Fields(mnemonic)
	options := append([]string(nil), words...)
	seed := cfg.ShuffleSeed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return &App{
		pkg:     pkg,
		screen:  ScreenTerms,
		words:   words,
		options: options,
		picked:  make([]bool, len(options)),
		refs:    make(map[string]elementRef),
	}, nil
}

// Screen returns the current screen.
func (a *App) Screen() Screen {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

// Mnemonic returns the seed words in order.
func (a *App) Mnemonic() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.words...)
}

// Clipboard returns what the copy button placed on the clipboard.
func (a *App) Clipboard() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clipboard
}

// TermsOpened reports whether the terms text was tapped.
func (a *App) TermsOpened() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.termsOpened
}

func (a *App) goTo(s Screen) {
	a.screen = s
	a.generation++
	a.pinBuffer = ""
}

func (a *App) fail(msg string) {
	a.errMsg = msg
	a.goTo(ScreenError)
}

// widgets lists the current screen's elements top to bottom.
func (a *App) widgets() []widget {
	var ws []widget
	add := func(name string, index int, text string, displayed, enabled bool) {
		ws = append(ws, widget{name: name, index: index, text: text, displayed: displayed, enabled: enabled})
	}

	switch a.screen {
	case ScreenTerms:
		add(wTermsCheckbox, 0, "I agree to the Terms of Service", true, true)
		add(wTermsText, 0, "Terms of Service", true, true)
		add(wNext, 0, "Next", true, a.accepted)
	case ScreenSeedReveal:
		add(wReveal, 0, "Reveal secret phrase", !a.revealed, true)
		add(wSeedContainer, 0, "", a.revealed, true)
		if a.revealed {
			for i, w := range a.words {
				add(wSeedWord, i, w, true, true)
			}
		}
		add(wCopy, 0, "Copy", a.revealed, a.revealed)
		add(wNext, 0, "Next", true, a.revealed)
	case ScreenSeedConfirm:
		for i, w := range a.options {
			add(wWordOption, i, w, !a.picked[i], !a.picked[i])
		}
		add(wContinue, 0, "Continue", true, true)
	case ScreenPinSetup, ScreenPinConfirm:
		add(wPinInput, 0, strings.Repeat("•", len([]rune(a.pinBuffer))), true, true)
		add(wContinue, 0, "Continue", true, true)
	case ScreenSuccess:
		add(wWelcomeBanner, 0, "Your wallet is ready", true, true)
	case ScreenError:
		add(wErrorMessage, 0, a.errMsg, true, true)
	}

	for i := range ws {
		ws[i].bounds = rect{
			X:      widgetMarginX,
			Y:      widgetMarginTop + i*widgetSpacing,
			Width:  ScreenWidth - 2*widgetMarginX,
			Height: widgetHeight,
		}
	}
	return ws
}

// find resolves a locator against the current screen and issues handles.
func (a *App) find(strategy, value string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	match, err := a.matcher(strategy, value)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, w := range a.widgets() {
		if !match(w) {
			continue
		}
		id := uuid.NewString()
		a.refs[id] = elementRef{name: w.name, index: w.index, generation: a.generation}
		ids = append(ids, id)
	}
	return ids, nil
}

func (a *App) matcher(strategy, value string) (func(widget) bool, error) {
	switch strategy {
	case "id":
		name := strings.TrimPrefix(value, a.pkg+":id/")
		if strings.Contains(name, ":id/") {
			// Other package
			return func(widget) bool { return false }, nil
		}
		return func(w widget) bool { return w.name == name }, nil
	case "-android uiautomator":
		text, ok := parseUiSelectorText(value)
		if !ok {
			return nil, errInvalidSelector(value)
		}
		return func(w widget) bool { return w.text == text }, nil
	default:
		return nil, errInvalidSelector(strategy)
	}
}

// parseUiSelectorText extracts X from new UiSelector().text("X").
func parseUiSelectorText(s string) (string, bool) {
	const prefix, suffix = `new UiSelector().text("`, `")`
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) {
		return "", false
	}
	inner := s[len(prefix) : len(s)-len(suffix)]
	inner = strings.ReplaceAll(inner, `\"`, `"`)
	inner = strings.ReplaceAll(inner, `\\`, `\`)
	return inner, true
}

// resolve maps a handle to its live widget.
func (a *App) resolve(id string) (widget, error) {
	ref, ok := a.refs[id]
	if !ok {
		return widget{}, errNoSuchElement(id)
	}
	if ref.generation != a.generation {
		return widget{}, errStale(id)
	}
	for _, w := range a.widgets() {
		if w.name == ref.name && w.index == ref.index {
			return w, nil
		}
	}
	return widget{}, errStale(id)
}

func (a *App) element(id string) (widget, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resolve(id)
}

func (a *App) click(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, err := a.resolve(id)
	if err != nil {
		return err
	}
	if !w.displayed {
		return errNotInteractable(id)
	}
	a.press(w)
	return nil
}

// press applies a tap on w. Disabled widgets ignore taps.
func (a *App) press(w widget) {
	if !w.enabled {
		return
	}
	switch w.name {
	case wTermsCheckbox:
		a.accepted = !a.accepted
	case wTermsText:
		a.termsOpened = true
	case wNext:
		switch a.screen {
		case ScreenTerms:
			a.goTo(ScreenSeedReveal)
		case ScreenSeedReveal:
			a.goTo(ScreenSeedConfirm)
		}
	case wReveal:
		a.revealed = true
	case wCopy:
		a.clipboard = strings.Join(a.words, " ")
	case wWordOption:
		a.picked[w.index] = true
		a.selection = append(a.selection, a.options[w.index])
	case wContinue:
		a.advance()
	}
}

func (a *App) advance() {
	switch a.screen {
	case ScreenSeedConfirm:
		if !equalWords(a.selection, a.words) {
			a.fail(MsgSeedIncorrect)
			return
		}
		a.goTo(ScreenPinSetup)
	case ScreenPinSetup:
		if a.pinBuffer == "" {
			return
		}
		a.firstPin = a.pinBuffer
		a.goTo(ScreenPinConfirm)
	case ScreenPinConfirm:
		if a.pinBuffer != a.firstPin {
			a.fail(MsgPinMismatch)
			return
		}
		a.goTo(ScreenSuccess)
	}
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (a *App) clear(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, err := a.resolve(id)
	if err != nil {
		return err
	}
	if w.name == wPinInput {
		a.pinBuffer = ""
	}
	return nil
}

func (a *App) sendKeys(id, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, err := a.resolve(id)
	if err != nil {
		return err
	}
	if w.name != wPinInput {
		return errNotInteractable(id)
	}
	a.pinBuffer += text
	return nil
}

// tapAt taps the topmost displayed widget containing the point.
func (a *App) tapAt(x, y int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, w := range a.widgets() {
		if w.displayed && w.bounds.contains(x, y) {
			a.press(w)
			return
		}
	}
}

// snapshot returns the current widgets for page source rendering.
func (a *App) snapshot() (Screen, []widget) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen, a.widgets()
}
