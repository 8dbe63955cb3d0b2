package libio

import (
	"encoding/binary"
	"io"
)

// stickyWriter writes little endian values. The first error is kept and later writes are
// dropped, so a sequence of puts needs one check at the end.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (sw *stickyWriter) put(data any) {
	if sw.err == nil {
		sw.err = binary.Write(sw.w, binary.LittleEndian, data)
	}
}

// stickyReader is the reading counterpart of stickyWriter. last is the offset at which the
// latest read started.
type stickyReader struct {
	r      io.Reader
	offset int
	last   int
	err    error
}

func (sr *stickyReader) get(data any) bool {
	if sr.err != nil {
		return false
	}
	sr.last = sr.offset
	if sr.err = binary.Read(sr.r, binary.LittleEndian, data); sr.err == nil {
		sr.offset += binary.Size(data)
	}
	return sr.err == nil
}
