// ABOUTME: HTTP handlers of the export service
// ABOUTME: Session and slot management, kit export and the session event stream
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/op1kit/op1drum/pkg/bridge"
	"github.com/op1kit/op1drum/pkg/op1"
)

const (
	// exportFilename is the name offered to browsers for an exported kit
	exportFilename = "drum.aif"

	// sendBufferSize bounds the events queued per WebSocket subscriber
	sendBufferSize = 64
)

// errorResponse is the body of every failed request. Stage and File are
// set for export failures.
type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	File  string `json:"file,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sessionsMu.RLock()
	count := len(s.sessions)
	s.sessionsMu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"server":   s.config.Name,
		"version":  s.config.Version,
		"sessions": count,
		"uptime":   time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.createSession()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

// lookupSession resolves the {id} path value, writing a 404 when unknown
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := r.PathValue("id")
	sess, ok := s.session(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
		return nil, false
	}
	sess.touch()
	return sess, true
}

// slotIndex parses the {n} path value, writing a 400 when invalid
func slotIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err == nil {
		err = validSlot(n)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid slot: %w", err))
		return 0, false
	}
	return n, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionState{ID: sess.ID, Slots: sess.snapshot()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.removeSession(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", r.PathValue("id")))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutSlot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	n, ok := slotIndex(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("empty body"))
		return
	}

	name := r.Header.Get("X-Filename")
	if name == "" {
		name = fmt.Sprintf("slot %d", n+1)
	}

	gen := sess.setSlot(n, name, data)
	if s.config.Debug {
		log.Printf("[DEBUG] Session %s: slot %d <- %s (%d bytes, generation %d)", sess.ID, n, name, len(data), gen)
	}
	s.startPreview(sess, n, gen, data)
	s.updateTUI()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"slot":       n,
		"generation": gen,
	})
}

func (s *Server) handleDeleteSlot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	n, ok := slotIndex(w, r)
	if !ok {
		return
	}

	sess.clearSlot(n)
	s.updateTUI()
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionExport exports the filled slots of a session. An empty body
// uses the configured kit options.
func (s *Server) handleSessionExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	opts := s.config.Kit
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
		return
	}
	if len(body) > 0 {
		opts = bridge.KitOptions{}
		if err := json.Unmarshal(body, &opts); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid kit options: %w", err))
			return
		}
	}

	s.export(w, sess.files(), opts)
}

// handleExport is a one-shot export of the multipart "files" parts, in
// order. An optional "kit" field carries JSON kit options.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts := s.config.Kit
	if kit := r.FormValue("kit"); kit != "" {
		opts = bridge.KitOptions{}
		if err := json.Unmarshal([]byte(kit), &opts); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid kit options: %w", err))
			return
		}
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) > op1.Slots {
		writeExportError(w, &bridge.PipelineError{Stage: bridge.StageValidate, Index: -1,
			Err: fmt.Errorf("%w: %d files, at most %d", bridge.ErrTooManySamples, len(headers), op1.Slots)})
		return
	}

	files := make([]bridge.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("failed to open %s: %w", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read %s: %w", fh.Filename, err))
			return
		}
		files = append(files, bridge.File{Name: fh.Filename, Data: data})
	}

	s.export(w, files, opts)
}

// export runs the bridge pipeline and writes either the whole kit or an
// error; a failed export never sends partial output
func (s *Server) export(w http.ResponseWriter, files []bridge.File, opts bridge.KitOptions) {
	start := time.Now()
	out, err := s.bridge.Export(files, opts)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		s.failures.Add(1)
		stage := "internal"
		var perr *bridge.PipelineError
		if errors.As(err, &perr) {
			stage = perr.Stage
		}
		s.metrics.RecordExportFailure(stage, elapsed)
		log.Printf("Export failed: %v", err)
		s.updateTUI()
		writeExportError(w, err)
		return
	}

	s.exports.Add(1)
	s.metrics.RecordExport(len(files), len(out), elapsed)
	log.Printf("Exported %d samples (%d bytes) in %.3fs", len(files), len(out), elapsed)
	s.updateTUI()

	w.Header().Set("Content-Type", "audio/aiff")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		log.Printf("Error writing export: %v", err)
	}
}

func writeExportError(w http.ResponseWriter, err error) {
	var perr *bridge.PipelineError
	if !errors.As(err, &perr) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := errorResponse{Error: perr.Err.Error(), Stage: perr.Stage}
	if perr.Index >= 0 {
		resp.File = perr.Name
		if resp.File == "" {
			resp.File = fmt.Sprintf("file %d", perr.Index+1)
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

// handleEvents streams slot events of a session over a WebSocket. The
// first message is a snapshot of every filled slot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := &subscriber{
		conn:     conn,
		sendChan: make(chan interface{}, sendBufferSize),
	}
	if !sess.subscribe(sub) {
		return
	}
	defer sess.unsubscribe(sub)
	s.updateTUI()
	defer s.updateTUI()

	if s.config.Debug {
		log.Printf("[DEBUG] Session %s: subscriber connected from %s", sess.ID, r.RemoteAddr)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.subscriberWriter(sub)
	}()

	// Clients send nothing we act on; reading keeps pongs and close frames flowing
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		sess.touch()
	}

	sess.unsubscribe(sub)
	<-done
}

// subscriberWriter sends queued events to one subscriber
func (s *Server) subscriberWriter(sub *subscriber) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-sub.sendChan:
			if !ok {
				sub.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeDeadline))
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			sub.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing text message: %v", err)
				return
			}

		case <-ticker.C:
			if err := sub.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}
