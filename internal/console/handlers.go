package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/emit"
	"github.com/matthewbaird/abiconsole/internal/invoke"
	"github.com/matthewbaird/abiconsole/internal/typemap"
)

var errBadSelector = errors.New("invalid emit selector")

// load parses an interface description and makes it current.
func (s *Server) load(ctx context.Context, data []byte) (SchemaInfo, error) {
	schema, err := abi.ParseArtifact(data)
	if err != nil {
		return SchemaInfo{}, err
	}
	gen := s.engine.Load(ctx, schema)
	s.clients.ResetAll()
	return SchemaInfo{
		Generation: gen,
		Digest:     schema.Digest(),
		Operations: invoke.Bindings(schema),
		Warnings:   schema.Warnings(),
	}, nil
}

func (s *Server) loadSchema(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err.Error())
		return
	}
	info, err := s.load(r.Context(), data)
	if err != nil {
		status, code := errorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	schema := s.engine.Schema()
	if schema == nil {
		writeError(w, http.StatusNotFound, "NO_SCHEMA", "no interface loaded")
		return
	}
	writeJSON(w, http.StatusOK, SchemaInfo{
		Generation: s.engine.Generation(),
		Digest:     schema.Digest(),
		Operations: invoke.Bindings(schema),
		Warnings:   schema.Warnings(),
		ABI:        schema.JSON(),
	})
}

func (s *Server) acquireSession(w http.ResponseWriter, r *http.Request) {
	if err := s.endpoint.Acquire(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "ENDPOINT_UNAVAILABLE", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": true})
}

func (s *Server) listStates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.States())
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.State(chi.URLParam(r, "name"))
	if err != nil {
		status, code := errorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// call runs one invocation and reports it the same way for HTTP and
// websocket callers.
func (s *Server) call(ctx context.Context, op, target string, values map[string]string) (OutcomeData, error) {
	if target == "" {
		target = s.target
	}
	out, err := s.engine.Invoke(ctx, op, target, values, s.endpoint.Session())
	data := OutcomeData{Outcome: out}
	if st, stErr := s.engine.State(op); stErr == nil {
		data.State = st
	}
	if err != nil {
		data.Error = errorData(err)
		s.log.Debug("invoke failed", zap.String("operation", op), zap.Error(err))
	}
	return data, err
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request) {
	var body InvokeData
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	op := chi.URLParam(r, "name")

	data, err := s.call(r.Context(), op, body.Target, body.Values)
	if err != nil {
		status, code := errorStatus(err)
		if code == "UNKNOWN_OPERATION" {
			writeError(w, status, code, err.Error())
			return
		}
		writeJSON(w, status, data)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	opts, err := parseHistoryQuery(r, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	entries, next, err := s.journal.List(r.Context(), opts)
	if err != nil {
		s.log.Error("listing history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, HistoryData{Entries: entries, NextCursor: next})
}

// files emits the component for the loaded interface. Empty selectors use
// the server defaults.
func (s *Server) files(req EmitRequest) ([]emit.File, error) {
	d, m := s.dialect, s.mode
	if req.Dialect != "" {
		var err error
		if d, err = typemap.ParseDialect(req.Dialect); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadSelector, err)
		}
	}
	if req.Mode != "" {
		var err error
		if m, err = emit.ParseMode(req.Mode); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadSelector, err)
		}
	}
	return emit.Files(s.engine.Schema(), d, m)
}

// emitComponent returns the generated files as JSON, or a single file as a
// download when ?file= names one.
func (s *Server) emitComponent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	files, err := s.files(EmitRequest{Dialect: q.Get("dialect"), Mode: q.Get("mode")})
	if err != nil {
		status, code := errorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}

	if name := q.Get("file"); name != "" {
		for _, f := range files {
			if f.Name == name {
				w.Header().Set("Content-Type", contentType(name))
				w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
				io.WriteString(w, f.Content)
				return
			}
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no emitted file named "+name)
		return
	}
	writeJSON(w, http.StatusOK, toEmitData(files))
}

func toEmitData(files []emit.File) EmitData {
	out := EmitData{Files: make([]FileData, 0, len(files))}
	for _, f := range files {
		out.Files = append(out.Files, FileData{Name: f.Name, Content: f.Content})
	}
	return out
}

func contentType(name string) string {
	if name == emit.SchemaFilename {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}
