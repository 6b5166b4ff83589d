package rnadiff

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZlib
	DataTypeBZip2
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// zlib streams have no fixed magic number. Accept the 32K-window CMF byte
// with the FLG bytes written at the four standard compression levels.
var zlibFlags = map[byte]struct{}{0x01: {}, 0x5e: {}, 0x9c: {}, 0xda: {}}

// DetectDataType checks the leading bytes of a stream against a set of known
// compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(head []byte) DataType {
	if len(head) >= 2 && head[0] == 0x78 {
		if _, ok := zlibFlags[head[1]]; ok {
			return DataTypeZlib
		}
	}

Outer:
	for dt, sig := range byteCodeSigs {
		if len(head) < len(sig) {
			continue
		}
		for position := range sig {
			if head[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}

	return DataTypeNoCompression
}

// MaybeDecompressReadCloser peeks at the start of rc and, if it carries a known
// compression signature, returns a reader over the decompressed bytes. Closing
// the result also closes rc. Zip archives yield their first entry only.
func MaybeDecompressReadCloser(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)

	// A short (or empty) file is simply uncompressed.
	head, err := br.Peek(6)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		rc.Close()
		return nil, pfx.Err(err)
	}

	var r io.Reader
	switch DetectDataType(head) {
	case DataTypeGzip:
		r, err = gzip.NewReader(br)
	case DataTypeZip:
		zr := zipstream.NewReader(br)
		if _, err = zr.Next(); err == nil {
			r = zr
		}
	case DataTypeBZip2:
		r = bzip2.NewReader(br)
	case DataTypeXZ:
		r, err = xz.NewReader(br, 0)
	case DataTypeZlib:
		r, err = zlib.NewReader(br)
	default:
		r = br
	}
	if err != nil {
		rc.Close()
		return nil, pfx.Err(err)
	}

	return &stackedReadCloser{Reader: r, underlying: rc}, nil
}

// stackedReadCloser closes the decompressor (if it is closable) and then the
// underlying stream.
type stackedReadCloser struct {
	io.Reader
	underlying io.Closer
}

func (s *stackedReadCloser) Close() error {
	if c, ok := s.Reader.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.underlying.Close()
			return err
		}
	}

	return s.underlying.Close()
}
