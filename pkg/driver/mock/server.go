package mock

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/devicelab-dev/wallet-e2e/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// W3C WebDriver element identifier key (standard constant)
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// w3cError is a WebDriver error response.
type w3cError struct {
	status  int
	code    string
	message string
}

func (e *w3cError) Error() string { return e.code + ": " + e.message }

func errNoSuchElement(what string) error {
	return &w3cError{http.StatusNotFound, "no such element", "An element could not be located: " + what}
}

func errStale(id string) error {
	return &w3cError{http.StatusNotFound, "stale element reference", "The element " + id + " is no longer attached to the DOM"}
}

func errInvalidSelector(what string) error {
	return &w3cError{http.StatusBadRequest, "invalid selector", "Unsupported locator: " + what}
}

func errNotInteractable(id string) error {
	return &w3cError{http.StatusBadRequest, "element not interactable", "The element " + id + " is not interactable"}
}

func errInvalidSession(id string) error {
	return &w3cError{http.StatusNotFound, "invalid session id", "No active session with id " + id}
}

func errInvalidArgument(msg string) error {
	return &w3cError{http.StatusBadRequest, "invalid argument", msg}
}

// session is one simulated device session.
type session struct {
	app          *App
	caps         map[string]interface{}
	implicitWait time.Duration
	gestures     int
}

// Server is a W3C WebDriver endpoint backed by simulated wallet apps, one per
// session. Every new session starts from a fresh install.
type Server struct {
	cfg    AppConfig
	router *chi.Mux

	mu       sync.Mutex
	sessions map[string]*session
	created  int
}

// NewServer creates a simulator serving the given app configuration.
func NewServer(cfg AppConfig) *Server {
	s := &Server{cfg: cfg, sessions: make(map[string]*session)}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", s.status)
	r.Post("/session", s.createSession)

	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Delete("/", s.deleteSession)
		r.Get("/window/rect", s.windowRect)
		r.Post("/timeouts", s.setTimeouts)
		r.Post("/element", s.findElement)
		r.Post("/elements", s.findElements)
		r.Post("/actions", s.performActions)
		r.Get("/screenshot", s.screenshot)
		r.Get("/source", s.source)

		r.Route("/element/{elementID}", func(r chi.Router) {
			r.Post("/click", s.clickElement)
			r.Post("/clear", s.clearElement)
			r.Post("/value", s.sendKeys)
			r.Get("/text", s.elementText)
			r.Get("/displayed", s.elementDisplayed)
			r.Get("/enabled", s.elementEnabled)
			r.Get("/rect", s.elementRect)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, &w3cError{http.StatusNotFound, "unknown command", r.Method + " " + r.URL.Path})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// App returns the app of a live session.
func (s *Server) App(sessionID string) (*App, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return sess.app, true
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SessionsCreated returns how many sessions were ever created.
func (s *Server) SessionsCreated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// Start serves the simulator on addr ("127.0.0.1:0" picks a free port) and
// returns its base URL. Stop it by cancelling ctx.
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Simulator stopped: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	url := "http://" + ln.Addr().String()
	logger.Info("Simulated wallet app listening on %s", url)
	return url, nil
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeValue(w, map[string]interface{}{
		"ready":   true,
		"message": "wallet simulator ready",
		"build":   map[string]interface{}{"version": "simulator"},
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Capabilities struct {
			AlwaysMatch map[string]interface{} `json:"alwaysMatch"`
		} `json:"capabilities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errInvalidArgument("malformed session request: "+err.Error()))
		return
	}

	cfg := s.cfg
	caps := body.Capabilities.AlwaysMatch
	if cfg.Package == "" {
		if pkg, ok := caps["appium:appPackage"].(string); ok {
			cfg.Package = pkg
		}
	}

	app, err := NewApp(cfg)
	if err != nil {
		writeError(w, &w3cError{http.StatusInternalServerError, "session not created", err.Error()})
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{app: app, caps: caps}
	s.created++
	s.mu.Unlock()

	echoed := map[string]interface{}{
		"platformName":    "Android",
		"platformVersion": "14",
		"deviceName":      "wallet-simulator",
	}
	for k, v := range caps {
		echoed[k] = v
	}
	writeValue(w, map[string]interface{}{"sessionId": id, "capabilities": echoed})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := chi.URLParam(r, "sessionID")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, errInvalidSession(id))
		return nil, false
	}
	return sess, true
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(w, r); !ok {
		return
	}
	s.mu.Lock()
	delete(s.sessions, chi.URLParam(r, "sessionID"))
	s.mu.Unlock()
	writeValue(w, nil)
}

func (s *Server) windowRect(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(w, r); !ok {
		return
	}
	writeValue(w, map[string]interface{}{"x": 0, "y": 0, "width": ScreenWidth, "height": ScreenHeight})
}

func (s *Server) setTimeouts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Implicit *int64 `json:"implicit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errInvalidArgument(err.Error()))
		return
	}
	if body.Implicit != nil {
		s.mu.Lock()
		sess.implicitWait = time.Duration(*body.Implicit) * time.Millisecond
		s.mu.Unlock()
	}
	writeValue(w, nil)
}

type locatorBody struct {
	Using string `json:"using"`
	Value string `json:"value"`
}

func (s *Server) locate(w http.ResponseWriter, r *http.Request) (*session, []string, bool) {
	sess, ok := s.session(w, r)
	if !ok {
		return nil, nil, false
	}
	var body locatorBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errInvalidArgument(err.Error()))
		return nil, nil, false
	}
	ids, err := sess.app.find(body.Using, body.Value)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	return sess, ids, true
}

func (s *Server) findElement(w http.ResponseWriter, r *http.Request) {
	_, ids, ok := s.locate(w, r)
	if !ok {
		return
	}
	if len(ids) == 0 {
		writeError(w, errNoSuchElement("no match"))
		return
	}
	writeValue(w, map[string]interface{}{w3cElementKey: ids[0]})
}

func (s *Server) findElements(w http.ResponseWriter, r *http.Request) {
	_, ids, ok := s.locate(w, r)
	if !ok {
		return
	}
	refs := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, map[string]interface{}{w3cElementKey: id})
	}
	writeValue(w, refs)
}

func (s *Server) clickElement(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.app.click(chi.URLParam(r, "elementID")); err != nil {
		writeError(w, err)
		return
	}
	writeValue(w, nil)
}

func (s *Server) clearElement(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.app.clear(chi.URLParam(r, "elementID")); err != nil {
		writeError(w, err)
		return
	}
	writeValue(w, nil)
}

func (s *Server) sendKeys(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errInvalidArgument(err.Error()))
		return
	}
	if err := sess.app.sendKeys(chi.URLParam(r, "elementID"), body.Text); err != nil {
		writeError(w, err)
		return
	}
	writeValue(w, nil)
}

// withElement resolves the element of the request and writes f's value.
func (s *Server) withElement(w http.ResponseWriter, r *http.Request, f func(widget) interface{}) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	el, err := sess.app.element(chi.URLParam(r, "elementID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeValue(w, f(el))
}

func (s *Server) elementText(w http.ResponseWriter, r *http.Request) {
	s.withElement(w, r, func(el widget) interface{} { return el.text })
}

func (s *Server) elementDisplayed(w http.ResponseWriter, r *http.Request) {
	s.withElement(w, r, func(el widget) interface{} { return el.displayed })
}

func (s *Server) elementEnabled(w http.ResponseWriter, r *http.Request) {
	s.withElement(w, r, func(el widget) interface{} { return el.enabled })
}

func (s *Server) elementRect(w http.ResponseWriter, r *http.Request) {
	s.withElement(w, r, func(el widget) interface{} {
		return map[string]interface{}{
			"x": el.bounds.X, "y": el.bounds.Y, "width": el.bounds.Width, "height": el.bounds.Height,
		}
	})
}

// pointerAction is one step of a W3C pointer input source.
type pointerAction struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// performActions treats a press and release without travel as a tap at the
// press point. Swipes are accepted and counted; the flow has no scrollable content.
func (s *Server) performActions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Actions []struct {
			Type    string          `json:"type"`
			Actions []pointerAction `json:"actions"`
		} `json:"actions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errInvalidArgument(err.Error()))
		return
	}

	for _, source := range body.Actions {
		if source.Type != "pointer" {
			continue
		}
		var x, y int
		var down, moved bool
		for _, a := range source.Actions {
			switch a.Type {
			case "pointerMove":
				if down {
					moved = true
				}
				x, y = int(a.X), int(a.Y)
			case "pointerDown":
				down = true
			case "pointerUp":
				if down && !moved {
					sess.app.tapAt(x, y)
				}
				down, moved = false, false
			}
		}
	}

	s.mu.Lock()
	sess.gestures++
	s.mu.Unlock()
	writeValue(w, nil)
}

// screenshot renders a flat PNG tinted by screen, enough to verify attachment plumbing.
func (s *Server) screenshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	screen, _ := sess.app.snapshot()

	img := image.NewRGBA(image.Rect(0, 0, ScreenWidth/20, ScreenHeight/20))
	shade := uint8(40 * int(screen))
	fill := color.RGBA{R: shade, G: 120, B: 255 - shade, A: 255}
	for px := 0; px < img.Bounds().Dx(); px++ {
		for py := 0; py < img.Bounds().Dy(); py++ {
			img.Set(px, py, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, &w3cError{http.StatusInternalServerError, "unable to capture screen", err.Error()})
		return
	}
	writeValue(w, buf.Bytes()) // []byte marshals as base64
}

type sourceNode struct {
	XMLName    xml.Name `xml:"node"`
	ResourceID string   `xml:"resource-id,attr"`
	Text       string   `xml:"text,attr"`
	Displayed  bool     `xml:"displayed,attr"`
	Enabled    bool     `xml:"enabled,attr"`
	Bounds     string   `xml:"bounds,attr"`
}

type sourceHierarchy struct {
	XMLName xml.Name     `xml:"hierarchy"`
	Screen  string       `xml:"screen,attr"`
	Nodes   []sourceNode `xml:"node"`
}

func (s *Server) source(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	screen, widgets := sess.app.snapshot()

	h := sourceHierarchy{Screen: screen.String()}
	for _, wd := range widgets {
		text := wd.text
		if wd.name == wSeedWord {
			text = "" // secret words never leave the device in dumps
		}
		h.Nodes = append(h.Nodes, sourceNode{
			ResourceID: sess.app.pkg + ":id/" + wd.name,
			Text:       text,
			Displayed:  wd.displayed,
			Enabled:    wd.enabled,
			Bounds: fmt.Sprintf("[%d,%d][%d,%d]", wd.bounds.X, wd.bounds.Y,
				wd.bounds.X+wd.bounds.Width, wd.bounds.Y+wd.bounds.Height),
		})
	}

	out, err := xml.MarshalIndent(h, "", "  ")
	if err != nil {
		writeError(w, &w3cError{http.StatusInternalServerError, "unknown error", err.Error()})
		return
	}
	writeValue(w, xml.Header+string(out))
}

func writeValue(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": value})
}

func writeError(w http.ResponseWriter, err error) {
	var we *w3cError
	if !errors.As(err, &we) {
		we = &w3cError{http.StatusInternalServerError, "unknown error", err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(we.status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"value": map[string]interface{}{"error": we.code, "message": we.message, "stacktrace": ""},
	})
}
