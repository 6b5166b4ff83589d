// Package export writes pipeline outputs under a local directory or a Google
// Cloud Storage prefix, and optionally into a SQLite database.
package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/rnadiff"
)

// Sink creates output files by path relative to the output root. Existing
// files are overwritten.
type Sink interface {
	Create(ctx context.Context, rel string) (io.WriteCloser, error)
	Location(rel string) string
}

// NewSink returns a GCSSink for gs:// roots and a DirSink otherwise.
func NewSink(root string, client *storage.Client) (Sink, error) {
	if !rnadiff.IsGSPath(root) {
		local, err := rnadiff.ExpandHome(root)
		if err != nil {
			return nil, err
		}
		return &DirSink{Root: local}, nil
	}

	if client == nil {
		return nil, fmt.Errorf("%s: a storage client is required to write to Google Storage", root)
	}
	parts := strings.SplitN(strings.TrimPrefix(root, "gs://"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("%s: no bucket name", root)
	}
	s := &GCSSink{Client: client, Bucket: parts[0]}
	if len(parts) == 2 {
		s.Prefix = strings.Trim(parts[1], "/")
	}
	return s, nil
}

// DirSink writes under a local directory, creating subdirectories as needed.
type DirSink struct {
	Root string
}

func (d *DirSink) Location(rel string) string {
	return filepath.Join(d.Root, filepath.FromSlash(rel))
}

func (d *DirSink) Create(ctx context.Context, rel string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := d.Location(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, pfx.Err(err)
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, pfx.Err(err)
	}
	return f, nil
}

// GCSSink writes objects under gs://Bucket/Prefix. Objects become visible
// when their writer is closed.
type GCSSink struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

func (g *GCSSink) object(rel string) string {
	return path.Join(g.Prefix, rel)
}

func (g *GCSSink) Location(rel string) string {
	return "gs://" + g.Bucket + "/" + g.object(rel)
}

func (g *GCSSink) Create(ctx context.Context, rel string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := g.Client.Bucket(g.Bucket).Object(g.object(rel)).NewWriter(ctx)
	if strings.HasSuffix(rel, ".svg") {
		w.ContentType = "image/svg+xml"
	} else if strings.HasSuffix(rel, ".csv") {
		w.ContentType = "text/csv"
	}
	return w, nil
}

// WriteFile creates rel in the sink, hands the writer to fill and closes it.
// The close error is reported, since GCS uploads fail there.
func WriteFile(ctx context.Context, s Sink, rel string, fill func(w io.Writer) error) (err error) {
	w, err := s.Create(ctx, rel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = pfx.Err(cerr)
		}
		if err == nil {
			log.Printf("Wrote %s\n", s.Location(rel))
		}
	}()

	return fill(w)
}
