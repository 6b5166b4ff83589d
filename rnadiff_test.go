package rnadiff

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

const sampleTable = "gene_id\tS1\tS2\nENSG000001\t10\t20\nENSG000002\t3\t4\n"

func TestDetectDataType(t *testing.T) {
	cases := []struct {
		head []byte
		want DataType
	}{
		{[]byte{0x1f, 0x8b, 0x08, 0x00}, DataTypeGzip},
		{[]byte("PK\x03\x04rest"), DataTypeZip},
		{[]byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, DataTypeXZ},
		{[]byte("BZh91AY"), DataTypeBZip2},
		{[]byte{0x78, 0x9c, 0x4b}, DataTypeZlib},
		{[]byte{0x78, 0xda}, DataTypeZlib},
		{[]byte("x y z"), DataTypeNoCompression},
		{[]byte{0x1f, 0x9d, 0x90}, DataTypeNoCompression},
		{[]byte("gene_id\t"), DataTypeNoCompression},
		{[]byte{0x1f}, DataTypeNoCompression},
		{nil, DataTypeNoCompression},
	}

	for _, c := range cases {
		if got := DetectDataType(c.head); got != c.want {
			t.Errorf("%q: got %v, want %v", c.head, got, c.want)
		}
	}
}

func TestMaybeDecompressGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(sampleTable)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	rc, err := MaybeDecompressReadCloser(ioutil.NopCloser(&buf))
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	got, err := ioutil.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != sampleTable {
		t.Errorf("got %q", got)
	}
}

func TestMaybeDecompressZlib(t *testing.T) {
	for _, level := range []int{zlib.BestSpeed, zlib.DefaultCompression, zlib.BestCompression} {
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, level)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := zw.Write([]byte(sampleTable)); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}

		if got := DetectDataType(buf.Bytes()); got != DataTypeZlib {
			t.Fatalf("level %d: detected %v", level, got)
		}

		rc, err := MaybeDecompressReadCloser(ioutil.NopCloser(&buf))
		if err != nil {
			t.Fatal(err)
		}
		got, err := ioutil.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != sampleTable {
			t.Errorf("level %d: got %q", level, got)
		}
	}
}

func TestMaybeDecompressPlain(t *testing.T) {
	for _, in := range []string{sampleTable, "x", ""} {
		rc, err := MaybeDecompressReadCloser(ioutil.NopCloser(bytes.NewBufferString(in)))
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		got, err := ioutil.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != in {
			t.Errorf("got %q, want %q", got, in)
		}
	}
}

// closeRecorder notes whether Close was called.
type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestMaybeDecompressClosesUnderlying(t *testing.T) {
	src := &closeRecorder{Reader: bytes.NewBufferString(sampleTable)}
	rc, err := MaybeDecompressReadCloser(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := rc.Close(); err != nil {
		t.Fatal(err)
	}
	if !src.closed {
		t.Error("underlying reader was not closed")
	}
}

func TestMaybeDecompressBadGzip(t *testing.T) {
	src := &closeRecorder{Reader: bytes.NewReader([]byte{0x1f, 0x8b, 0x08})}
	if _, err := MaybeDecompressReadCloser(src); err == nil {
		t.Fatal("expected an error for a truncated gzip header")
	}
	if !src.closed {
		t.Error("underlying reader should be closed on error")
	}
}

// A bzip2 signature followed by garbage must fail to decode rather than pass
// through untouched.
func TestMaybeDecompressBZip2Selected(t *testing.T) {
	rc, err := MaybeDecompressReadCloser(ioutil.NopCloser(bytes.NewBufferString("BZh9 not really bzip2")))
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	if _, err := ioutil.ReadAll(rc); err == nil {
		t.Error("expected a bzip2 decoding error")
	}
}

func TestDetermineDelimiter(t *testing.T) {
	cases := []struct {
		name   string
		sample string
		want   rune
	}{
		{"tab", sampleTable, '\t'},
		{"comma", "sample,diagnosis,lobe\nS1,Control,Frontal\nS2,FCDIIb,Temporal\n", ','},
		{"semicolon", "sample;diagnosis;lobe\nS1;Control;Frontal\nS2;FCDIIb;Temporal\n", ';'},
		{"header only tab", "sample\tdiagnosis\tlobe", '\t'},
		{"single column", "sample\nS1\n", ','},
	}

	for _, c := range cases {
		if got := DetermineDelimiter([]byte(c.sample)); got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestSplitGSPath(t *testing.T) {
	bucket, object, err := SplitGSPath("gs://my-bucket/path/to/counts.tsv.gz")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "my-bucket" || object != "path/to/counts.tsv.gz" {
		t.Errorf("got %q %q", bucket, object)
	}

	if !IsGSPath("gs://b/o") || IsGSPath("/tmp/gs://b") {
		t.Error("IsGSPath misclassified a path")
	}
	if _, _, err := SplitGSPath("gs://bucket-only"); err == nil {
		t.Error("expected an error for a path without an object")
	}
}

func TestOpenInputLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.tsv.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	zw.Write([]byte(sampleTable))
	zw.Close()
	f.Close()

	got, err := ReadAllInput(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != sampleTable {
		t.Errorf("got %q", got)
	}

	if _, err := OpenInput(context.Background(), "gs://bucket/object", nil); err == nil {
		t.Error("expected an error for a gs:// path without a client")
	}
}

func TestOpenReadSeekerLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.tsv")
	if err := os.WriteFile(path, []byte(sampleTable), 0644); err != nil {
		t.Fatal(err)
	}

	rsc, err := OpenReadSeeker(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rsc.Close()

	if _, err := rsc.Seek(8, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	got, err := ioutil.ReadAll(rsc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != sampleTable[8:] {
		t.Errorf("got %q", got)
	}

	if _, err := OpenReadSeeker(context.Background(), "gs://bucket/meta.xls", nil); err == nil {
		t.Error("expected an error for a gs:// path without a client")
	}
}
