// Package ingest accepts files uploaded to file nodes. The raw bytes are kept
// under DATA_ROOT/uploads and their text is placed on the node unparsed.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/MalithGihan/flownodes/internal/ctxlog"
	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/internal/store"
)

// MaxSize caps a single upload.
const MaxSize = 32 << 20

const area = "uploads"

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrNotFileNode     = errors.New("node does not accept files")
)

// DetectType maps an accepted file name to its MIME type.
func DetectType(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return "text/plain", true
	case ".pdf":
		return "application/pdf", true
	case ".doc":
		return "application/msword", true
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true
	default:
		return "", false
	}
}

type Recorder interface {
	RecordAction(action string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordAction(string, error) {}

// Upload describes a stored file.
type Upload struct {
	ID       string `json:"id"`
	NodeID   string `json:"nodeId"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	Size     int64  `json:"size"`
}

type Service struct {
	store *graph.Store
	fs    *store.FS
	rec   Recorder
	newID func() string
}

func New(st *graph.Store, fs *store.FS, rec Recorder) *Service {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Service{store: st, fs: fs, rec: rec, newID: uuid.NewString}
}

// Accept stores r and sets fileName, fileType and fileContent on the file
// node in one replace. declaredType wins over detection when it is specific.
func (s *Service) Accept(ctx context.Context, nodeID, fileName, declaredType string, r io.Reader) (up Upload, err error) {
	defer func() { s.rec.RecordAction("upload", err) }()

	n, ok := s.store.Node(nodeID)
	if !ok {
		return Upload{}, &graph.NotFoundError{Entity: "node", ID: nodeID}
	}
	if n.Type != graph.TypeFile {
		return Upload{}, fmt.Errorf("%w: %s node %q", ErrNotFileNode, n.Type, nodeID)
	}
	name := filepath.Base(fileName)
	detected, ok := DetectType(name)
	if !ok {
		return Upload{}, fmt.Errorf("%w: %q (want .txt, .pdf, .doc or .docx)", ErrUnsupportedFile, name)
	}
	typ := declaredType
	if typ == "" || typ == "application/octet-stream" {
		typ = detected
	}

	var buf bytes.Buffer
	size, err := io.Copy(&buf, io.LimitReader(r, MaxSize+1))
	if err != nil {
		return Upload{}, err
	}
	if size > MaxSize {
		return Upload{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxSize)
	}

	id := s.newID()
	if _, err := s.fs.Write(area, id, bytes.NewReader(buf.Bytes())); err != nil {
		return Upload{}, fmt.Errorf("store upload: %w", err)
	}

	d := n.Data
	for _, f := range []struct {
		k string
		v string
	}{{"fileName", name}, {"fileType", typ}, {"fileContent", buf.String()}} {
		if d, err = d.With(f.k, f.v); err != nil {
			return Upload{}, err
		}
	}
	n.Data = d
	if err := s.store.ApplyNodeChanges([]graph.NodeChange{{Kind: graph.ChangeReplace, Item: &n}}); err != nil {
		_ = s.fs.Remove(area, id)
		return Upload{}, err
	}

	up = Upload{ID: id, NodeID: nodeID, FileName: name, FileType: typ, Size: size}
	ctxlog.FromContext(ctx).Info("file uploaded", "node", nodeID, "upload", id, "type", typ, "size", size)
	return up, nil
}
