// Package generic records file-system metadata for any single file.
package generic

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/invopop/jsonschema"
	"github.com/ppiankov/materialsio/internal/extract"
	"github.com/ppiankov/materialsio/internal/model"
)

// Name is the registry name of the parser
const Name = "generic"

// Options are read from the parse context
type Options struct {
	// Checksum adds a SHA-256 digest of the file contents
	Checksum bool `mapstructure:"checksum"`
}

// Record describes one file
type Record struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Extension string    `json:"extension,omitempty"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified"`
	MimeType  string    `json:"mime_type"`
	SHA256    string    `json:"sha256,omitempty"`
}

// Parser extracts basic metadata from one file
type Parser struct {
	extract.Base
}

// New creates a generic file parser
func New() *Parser {
	return &Parser{}
}

// Describe returns the parser documentation
func (p *Parser) Describe() string {
	return "Gather basic file information (size, modification time, MIME type)"
}

// Version returns the parser version
func (p *Parser) Version() string {
	return "0.1.0"
}

// Implementors returns the points of contact
func (p *Parser) Implementors() []string {
	return []string{"Materials IO Maintainers"}
}

// Schema describes Record
func (p *Parser) Schema() *jsonschema.Schema {
	return extract.ReflectSchema(&Record{})
}

// Parse reads metadata of a single-file group
func (p *Parser) Parse(group model.FileGroup, ctx model.Context) (model.Record, error) {
	var opts Options
	if err := extract.DecodeOptions(ctx, &opts); err != nil {
		return nil, err
	}

	return extract.ParseSingle(group, ctx, func(path string, _ model.Context) (model.Record, error) {
		return p.parseFile(path, opts)
	})
}

func (p *Parser) parseFile(path string, opts Options) (model.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return nil, model.Unparsable("%s is a directory", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect mime type: %w", err)
	}

	rec := Record{
		Path:      path,
		Name:      filepath.Base(path),
		Extension: strings.TrimPrefix(filepath.Ext(path), "."),
		Size:      info.Size(),
		Modified:  info.ModTime().UTC(),
		MimeType:  mtype.String(),
	}

	if opts.Checksum {
		sum, err := checksum(path)
		if err != nil {
			return nil, err
		}
		rec.SHA256 = sum
	}

	return extract.ToRecord(rec)
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
