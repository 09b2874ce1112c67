// Package upload manages the uploaded filter (and optional variable
// dictionary) that report requests refer to by id.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/layer-report-client/internal/backend"
	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/logger"
	"github.com/mohammed-shakir/layer-report-client/internal/status"
)

const MetaReadFailed = "No se pudo leer el archivo."

// Kind selects the endpoint and the user-facing wording of a Session.
type Kind struct {
	Path      string
	Op        string
	Uploading string
	Ready     string
	Failed    string
	Loaded    string // format with the row count
}

var (
	Filter = Kind{
		Path:      backend.PathUploadFilter,
		Op:        "upload_filter",
		Uploading: "Subiendo filtro...",
		Ready:     "Filtro listo",
		Failed:    "Error al cargar filtro",
		Loaded:    "Filtro cargado: %d filas",
	}
	Dictionary = Kind{
		Path:      backend.PathUploadDictionary,
		Op:        "upload_dictionary",
		Uploading: "Subiendo diccionario...",
		Ready:     "Diccionario listo",
		Failed:    "Error al cargar diccionario",
		Loaded:    "Diccionario cargado: %d filas",
	}
)

// File is a user-chosen file ready for upload.
type File struct {
	Name string
	Data []byte
}

func (f File) Fingerprint() uint64 { return xxhash.Sum64(f.Data) }

// ReadFile loads path from disk.
func ReadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &File{Name: filepath.Base(path), Data: b}, nil
}

type Uploader interface {
	Upload(ctx context.Context, path, filename string, body io.Reader) (model.FilterSession, error)
}

type Session struct {
	kind   Kind
	api    Uploader
	sink   status.Sink
	logger *slog.Logger

	mu          sync.RWMutex
	current     model.FilterSession
	has         bool
	meta        string
	fingerprint uint64
	fileName    string
}

func NewSession(kind Kind, api Uploader, sink status.Sink, log *slog.Logger) *Session {
	if log == nil {
		log = logger.NopSlog()
	}
	return &Session{kind: kind, api: api, sink: sink, logger: log}
}

// Upload sends f and replaces the session on success. A nil file is a
// no-op. On failure the previous session is kept.
func (s *Session) Upload(ctx context.Context, f *File) error {
	if f == nil {
		return nil
	}
	ctx = logger.WithOp(ctx, s.kind.Op)
	fp := f.Fingerprint()
	s.sink.Set(status.Busy(s.kind.Uploading))

	sess, err := s.api.Upload(ctx, s.kind.Path, f.Name, bytes.NewReader(f.Data))
	if err != nil {
		s.mu.Lock()
		s.meta = MetaReadFailed
		s.mu.Unlock()
		s.sink.Set(status.Error(s.kind.Failed, backend.Detail(err)))
		s.logger.WarnContext(ctx, "upload failed", "file", f.Name, "fingerprint", fp, "err", err)
		return fmt.Errorf("%s %s: %w", s.kind.Op, f.Name, err)
	}

	s.mu.Lock()
	s.current = sess
	s.has = true
	s.meta = fmt.Sprintf(s.kind.Loaded, sess.Rows)
	s.fingerprint = fp
	s.fileName = f.Name
	s.mu.Unlock()

	s.sink.Set(status.Success(s.kind.Ready))
	s.logger.InfoContext(ctx, "upload accepted",
		"file", f.Name, "id", sess.FilterID, "rows", sess.Rows, "fingerprint", fp)
	return nil
}

// Current returns the accepted session, if any.
func (s *Session) Current() (model.FilterSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.has
}

// ID is the server-issued id, or "" before the first accepted upload.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.FilterID
}

func (s *Session) Meta() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// Fingerprint of the last accepted file; zero before any upload.
func (s *Session) Fingerprint() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint
}

func (s *Session) FileName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fileName
}
