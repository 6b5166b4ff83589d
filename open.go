package rnadiff

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// IsGSPath reports whether path points into Google Cloud Storage.
func IsGSPath(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// SplitGSPath splits gs://bucket/path/to/object into its bucket and object
// name.
func SplitGSPath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// OpenInput opens a local file (expanding ~) or, when a storage client is
// provided, a gs:// object. Compressed content is decompressed on the fly.
func OpenInput(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	var rc io.ReadCloser

	if IsGSPath(path) {
		if client == nil {
			return nil, fmt.Errorf("%s: a storage client is required to read from Google Storage", path)
		}
		bucketName, objectName, err := SplitGSPath(path)
		if err != nil {
			return nil, err
		}
		rdr, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}
		rc = rdr
	} else {
		local, err := ExpandHome(path)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(local)
		if err != nil {
			return nil, pfx.Err(err)
		}
		rc = f
	}

	return MaybeDecompressReadCloser(rc)
}

// ReadAllInput is OpenInput followed by a full read, for consumers (like the
// xls parser) that need random access.
func ReadAllInput(ctx context.Context, path string, client *storage.Client) ([]byte, error) {
	rc, err := OpenInput(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	return b, nil
}
