package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/rook-computer/composer/internal/catalog"
	"github.com/rook-computer/composer/internal/editor"
	"github.com/rook-computer/composer/internal/export"
	"github.com/rook-computer/composer/internal/loader"
	"github.com/rook-computer/composer/internal/state"
)

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type presetResponse struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type boxResponse struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type characterResponse struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Scale  float64 `json:"scale"`
}

type sessionResponse struct {
	Preset      presetResponse     `json:"preset"`
	Background  int                `json:"background"`
	Overlay     int                `json:"overlay"`
	Backgrounds []catalog.Entry    `json:"backgrounds"`
	Overlays    []catalog.Entry    `json:"overlays"`
	Character   *characterResponse `json:"character"`
	Mode        string             `json:"mode"`
	Box         boxResponse        `json:"box"`
	Generation  uint64             `json:"generation"`
}

type indexRequest struct {
	Index *int `json:"index"`
}

type pointerRequest struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (p pointerRequest) event() (state.Event, error) {
	switch strings.ToLower(p.Type) {
	case "down":
		return state.PointerDown{X: p.X, Y: p.Y}, nil
	case "move":
		return state.PointerMove{X: p.X, Y: p.Y}, nil
	case "up":
		return state.PointerUp{}, nil
	case "leave":
		return state.PointerLeave{}, nil
	default:
		return nil, fmt.Errorf("unknown pointer event type %q", p.Type)
	}
}

func apiV1Router(cfg APIV1Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) { handleState(w, r, cfg) })
	mux.HandleFunc("/background", func(w http.ResponseWriter, r *http.Request) { handleSelect(w, r, cfg, "background") })
	mux.HandleFunc("/overlay", func(w http.ResponseWriter, r *http.Request) { handleSelect(w, r, cfg, "overlay") })
	mux.HandleFunc("/character", func(w http.ResponseWriter, r *http.Request) { handleCharacter(w, r, cfg) })
	mux.HandleFunc("/pointer", func(w http.ResponseWriter, r *http.Request) { handlePointer(w, r, cfg) })
	mux.HandleFunc("/frame.png", func(w http.ResponseWriter, r *http.Request) { handleFrame(w, r, cfg) })
	mux.HandleFunc("/export", func(w http.ResponseWriter, r *http.Request) { handleExport(w, r, cfg) })
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) { handleWebSocket(w, r, cfg) })
	return mux
}

func handleState(w http.ResponseWriter, r *http.Request, cfg APIV1Config) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, sessionView(cfg.Session, cfg.Session.Snapshot()))
}

func handleSelect(w http.ResponseWriter, r *http.Request, cfg APIV1Config, kind string) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	var req indexRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil || req.Index == nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_json", `expected {"index": n}`)
		return
	}

	var (
		next state.State
		err  error
	)
	if kind == "background" {
		next, err = cfg.Session.SelectBackground(r.Context(), *req.Index)
	} else {
		next, err = cfg.Session.SelectOverlay(r.Context(), *req.Index)
	}
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(cfg.Session, next))
}

func handleCharacter(w http.ResponseWriter, r *http.Request, cfg APIV1Config) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	data, err := readUpload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, errLengthRequired):
			writeAPIError(w, http.StatusLengthRequired, "length_required", err.Error())
		case errors.Is(err, loader.ErrTooLarge), errors.As(err, &tooLarge):
			writeAPIError(w, http.StatusRequestEntityTooLarge, "too_large", loader.ErrTooLarge.Error())
		default:
			writeAPIError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		}
		return
	}

	next, err := cfg.Session.Upload(r.Context(), data)
	if err != nil {
		cfg.Logger.Errorf("web", "character upload failed: %v", err)
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(cfg.Session, next))
}

// readUpload accepts either a multipart form with a "file" field or a raw image body.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, loader.MaxUploadBytes+1<<20)
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()
		return readLimited(file)
	}

	if err := requireContentLength(r); err != nil {
		return nil, err
	}
	if r.ContentLength > loader.MaxUploadBytes {
		return nil, loader.ErrTooLarge
	}
	return readLimited(io.LimitReader(r.Body, r.ContentLength))
}

func readLimited(src io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, loader.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > loader.MaxUploadBytes {
		return nil, loader.ErrTooLarge
	}
	return data, nil
}

func handlePointer(w http.ResponseWriter, r *http.Request, cfg APIV1Config) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	var req pointerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	ev, err := req.event()
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_pointer", err.Error())
		return
	}
	next, err := cfg.Session.Submit(r.Context(), ev)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(cfg.Session, next))
}

func handleFrame(w http.ResponseWriter, r *http.Request, cfg APIV1Config) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	frame, gen, err := cfg.Session.Frame()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Generation", strconv.FormatUint(gen, 10))
	if err := export.EncodePNG(w, frame); err != nil {
		cfg.Logger.Errorf("web", "frame encode failed: %v", err)
	}
}

func handleExport(w http.ResponseWriter, r *http.Request, cfg APIV1Config) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	filename, data, err := cfg.Session.Export()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	setDownloadHeaders(w, filename, "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func sessionView(session Session, s state.State) sessionResponse {
	preset := session.Preset()
	cat := session.Catalog()
	resp := sessionResponse{
		Preset:      presetResponse{Name: preset.Name, Width: preset.Width, Height: preset.Height},
		Background:  s.Background,
		Overlay:     s.Overlay,
		Backgrounds: cat.Backgrounds,
		Overlays:    cat.Overlays,
		Mode:        s.Mode.String(),
		Box:         boxResponse{X: s.Box.X, Y: s.Box.Y, W: s.Box.W, H: s.Box.H},
		Generation:  s.Generation,
	}
	if s.Character.Present() {
		resp.Character = &characterResponse{
			Width:  s.Character.Width,
			Height: s.Character.Height,
			X:      s.Character.Pos.X,
			Y:      s.Character.Pos.Y,
			Scale:  s.Character.Scale,
		}
	}
	return resp
}

// writeSessionError maps editor, catalog and loader errors to API errors.
// Upload failures are recoverable and their message is shown to the user.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrIndexOutOfRange):
		writeAPIError(w, http.StatusBadRequest, "index_out_of_range", err.Error())
	case errors.Is(err, loader.ErrTooLarge):
		writeAPIError(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
	case errors.Is(err, loader.ErrNotImage):
		writeAPIError(w, http.StatusUnsupportedMediaType, "not_image", "the selected file is not a supported image")
	case errors.Is(err, loader.ErrDecode):
		writeAPIError(w, http.StatusUnprocessableEntity, "decode_failed", "the selected image could not be read; try another file")
	case errors.Is(err, editor.ErrNoFrame):
		writeAPIError(w, http.StatusServiceUnavailable, "frame_not_ready", err.Error())
	case errors.Is(err, editor.ErrStopped):
		writeAPIError(w, http.StatusServiceUnavailable, "editor_stopped", err.Error())
	default:
		writeAPIError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func setDownloadHeaders(w http.ResponseWriter, filename, contentType string) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	cd := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	w.Header().Set("Content-Disposition", cd)
}

func requireContentLength(r *http.Request) error {
	// Reject chunked/unknown length so the upload size is known up front.
	if r.ContentLength <= 0 {
		return errLengthRequired
	}
	return nil
}

var errLengthRequired = &apiSimpleError{Message: "Content-Length header is required"}

type apiSimpleError struct{ Message string }

func (e *apiSimpleError) Error() string { return e.Message }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
