package rnadiff

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// GSReaderAt decorates a Google Storage object handle with ReadAt.
type GSReaderAt struct {
	*storage.ObjectHandle
	Context context.Context
}

// ReadAt satisfies io.ReaderAt with one range request per call.
func (o GSReaderAt) ReadAt(p []byte, offset int64) (int, error) {
	rdr, err := o.NewRangeReader(o.Context, offset, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rdr.Close()

	n, err := io.ReadFull(rdr, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

type nopCloseSectionReader struct {
	*io.SectionReader
}

func (nopCloseSectionReader) Close() error { return nil }

// OpenReadSeeker opens a local file or gs:// object for random access, as
// needed by the xls parser. Unlike OpenInput it does not decompress.
func OpenReadSeeker(ctx context.Context, path string, client *storage.Client) (io.ReadSeekCloser, error) {
	if !IsGSPath(path) {
		local, err := ExpandHome(path)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(local)
		if err != nil {
			return nil, pfx.Err(err)
		}
		return f, nil
	}

	if client == nil {
		return nil, fmt.Errorf("%s: a storage client is required to read from Google Storage", path)
	}
	bucketName, objectName, err := SplitGSPath(path)
	if err != nil {
		return nil, err
	}

	obj := client.Bucket(bucketName).Object(objectName)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	return nopCloseSectionReader{io.NewSectionReader(GSReaderAt{ObjectHandle: obj, Context: ctx}, 0, attrs.Size)}, nil
}
