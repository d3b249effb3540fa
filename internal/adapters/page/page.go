// Package page renders chart specs into the static HTML page.
package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/okian/covidtrend/pkg/logger"
)

// Default script versions loaded by the page.
const (
	DefaultVegaVersion      = "5"
	DefaultVegaLiteVersion  = "4.17.0"
	DefaultVegaEmbedVersion = "6"
)

// Data is the template input.
type Data struct {
	Title            string
	VegaVersion      string
	VegaLiteVersion  string
	VegaEmbedVersion string
	// Specs holds one encoded Vega-Lite JSON document per chart.
	Specs       []string
	GeneratedAt string
}

// Option configures a Writer.
type Option func(*Writer)

// WithTemplatePath replaces the embedded template with a file on disk.
func WithTemplatePath(path string) Option {
	return func(w *Writer) {
		w.templatePath = path
	}
}

// WithLogger sets the logger used by the writer.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		w.log = l
	}
}

// Writer renders and writes the page.
type Writer struct {
	templatePath string
	log          logger.Logger
}

// NewWriter creates a Writer using the embedded template unless overridden.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) template() (*template.Template, error) {
	name := defaultTemplateName
	src := defaultTemplate
	if w.templatePath != "" {
		b, err := os.ReadFile(w.templatePath)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrTemplate, w.templatePath, err)
		}
		name, src = filepath.Base(w.templatePath), string(b)
	}
	t, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrTemplate, name, err)
	}
	return t, nil
}

// Render executes the template into out.
func (w *Writer) Render(out io.Writer, data Data) error {
	t, err := w.template()
	if err != nil {
		return err
	}
	if err := t.Execute(out, withDefaults(data)); err != nil {
		return fmt.Errorf("%w: execute: %v", ErrTemplate, err)
	}
	return nil
}

// Write renders the page and replaces path atomically. Missing parent
// directories are created. On failure path is left untouched.
func (w *Writer) Write(ctx context.Context, path string, data Data) error {
	var buf bytes.Buffer
	if err := w.Render(&buf, data); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWrite, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", ErrWrite, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrWrite, err)
	}

	if w.log != nil {
		w.log.Info(ctx, "page written",
			logger.String("path", path),
			logger.Int("bytes", buf.Len()),
			logger.Int("charts", len(data.Specs)))
	}
	return nil
}

func withDefaults(d Data) Data {
	if d.VegaVersion == "" {
		d.VegaVersion = DefaultVegaVersion
	}
	if d.VegaLiteVersion == "" {
		d.VegaLiteVersion = DefaultVegaLiteVersion
	}
	if d.VegaEmbedVersion == "" {
		d.VegaEmbedVersion = DefaultVegaEmbedVersion
	}
	if d.GeneratedAt == "" {
		d.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return d
}
