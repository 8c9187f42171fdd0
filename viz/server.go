package viz

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/steppesim/steppe/sim"
)

//go:embed templates/*.html
var templateFS embed.FS

// Constructor builds a fresh model from the current parameter values.
type Constructor func(params map[string]any) (sim.Runnable, error)

// Config holds the visualization server settings.
type Config struct {
	Addr     string
	Title    string
	MaxSteps int
}

// Server renders a model in the browser. On reset it rebuilds the
// model with the current user parameters, runs it to the step limit,
// and caches one rendered frame per step. Clients page through the
// cached frames over a websocket.
type Server struct {
	cfg      Config
	newModel Constructor
	elements []Element
	params   []UserParam

	httpServer *http.Server

	// paramMu guards the user param values, which every websocket
	// connection and watch-mode reset can touch concurrently.
	paramMu sync.Mutex

	mu     sync.Mutex
	states []json.RawMessage
}

// NewServer creates a visualization server and runs the model once so
// the first page load has frames to show.
func NewServer(cfg Config, newModel Constructor, elements []Element, params []UserParam) (*Server, error) {
	if newModel == nil {
		return nil, errors.New("model constructor is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8521"
	}
	if cfg.Title == "" {
		cfg.Title = "Simulation"
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 100
	}

	s := &Server{
		cfg:      cfg,
		newModel: newModel,
		elements: elements,
		params:   params,
	}
	if err := s.reset(); err != nil {
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routes: the page shell, a health check,
// and the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		s.handleWSConn(conn)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

// ListenAndServe runs the HTTP server until the context ends. On
// cancellation it performs a bounded shutdown so in-flight requests
// are drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("visualization listening on %s", s.cfg.Addr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Reset rebuilds the model with the current parameters and re-renders
// all frames. Used by watch mode when a scenario file changes.
func (s *Server) Reset() error {
	return s.reset()
}

func (s *Server) reset() error {
	model, err := s.newModel(s.paramValues())
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	states := []json.RawMessage{s.renderState(model)}
	base := model.Base()
	for base.Schedule.Steps() < s.cfg.MaxSteps && base.Running {
		model.Step()
		states = append(states, s.renderState(model))
	}

	s.mu.Lock()
	s.states = states
	s.mu.Unlock()
	return nil
}

func (s *Server) paramValues() map[string]any {
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	params := map[string]any{}
	for _, param := range s.params {
		params[param.ParamName()] = param.Value()
	}
	return params
}

func (s *Server) setParams(values map[string]any) error {
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	for _, param := range s.params {
		value, ok := values[param.ParamName()]
		if !ok {
			continue
		}
		if err := param.SetValue(value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) paramDescriptors() []map[string]any {
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	descriptors := make([]map[string]any, len(s.params))
	for i, param := range s.params {
		descriptors[i] = param.Descriptor()
	}
	return descriptors
}

func (s *Server) renderState(model sim.Runnable) json.RawMessage {
	state := make([]any, len(s.elements))
	for i, element := range s.elements {
		state[i] = element.Render(model)
	}
	data, err := json.Marshal(state)
	if err != nil {
		log.Printf("failed to marshal viz state: %v", err)
		return json.RawMessage("[]")
	}
	return data
}

func (s *Server) state(step int) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if step < 0 || step >= len(s.states) {
		return nil, false
	}
	return s.states[step], true
}

type wsFrame struct {
	Type   string          `json:"type"`
	Step   int             `json:"step,omitempty"`
	Params map[string]any  `json:"params,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

const maxDecodeErrorsPerConn = 5

func (s *Server) handleWSConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	peer := &wsPeer{encoder: json.NewEncoder(conn)}
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = peer.writeFrame(wsFrame{Type: "error", Error: "invalid frame payload"})
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		switch frame.Type {
		case "get_step":
			s.handleGetStep(peer, frame)
		case "reset":
			s.handleReset(peer, frame)
		case "get_params":
			s.handleGetParams(peer)
		default:
			_ = peer.writeFrame(wsFrame{Type: "error", Error: "unsupported frame type"})
		}
	}
}

func (s *Server) handleGetStep(peer *wsPeer, frame wsFrame) {
	state, ok := s.state(frame.Step)
	if !ok {
		_ = peer.writeFrame(wsFrame{Type: "end"})
		return
	}
	_ = peer.writeFrame(wsFrame{Type: "viz_state", Step: frame.Step, Data: state})
}

func (s *Server) handleReset(peer *wsPeer, frame wsFrame) {
	if err := s.setParams(frame.Params); err != nil {
		_ = peer.writeFrame(wsFrame{Type: "error", Error: err.Error()})
		return
	}

	if err := s.reset(); err != nil {
		log.Printf("viz reset failed: %v", err)
		_ = peer.writeFrame(wsFrame{Type: "error", Error: "model reset failed"})
		return
	}

	state, _ := s.state(0)
	_ = peer.writeFrame(wsFrame{Type: "viz_state", Step: 0, Data: state})
}

func (s *Server) handleGetParams(peer *wsPeer) {
	data, err := json.Marshal(s.paramDescriptors())
	if err != nil {
		log.Printf("failed to marshal param descriptors: %v", err)
		return
	}
	_ = peer.writeFrame(wsFrame{Type: "params", Data: data})
}

var pageTemplate = template.Must(template.New("index.html").
	Funcs(template.FuncMap{
		"formatNumber": message.NewPrinter(language.English).Sprint,
	}).
	ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Title    string
	MaxSteps int
	Elements []string
	Params   []map[string]any
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	kinds := make([]string, len(s.elements))
	for i, element := range s.elements {
		kinds[i] = element.Kind()
	}
	descriptors := s.paramDescriptors()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, pageData{
		Title:    s.cfg.Title,
		MaxSteps: s.cfg.MaxSteps,
		Elements: kinds,
		Params:   descriptors,
	}); err != nil {
		log.Printf("render page: %v", err)
	}
}
