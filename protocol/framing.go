package protocol

import (
	"bytes"
	"errors"
	"io"
)

// ReadFrame reads one frame from r: everything up to the first newline, up to
// EOF, or until limit bytes have arrived.
//
// The newline and anything after it are dropped. Reaching limit without a
// newline or EOF returns ErrFrameTooLarge. On a read error other than EOF
// the bytes received so far are returned together with the error, so the
// caller may treat a read deadline after partial input as the end of a frame.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxRequestSize
	}

	buf := make([]byte, 0, min(limit, 512))
	chunk := make([]byte, min(limit, 512))
	for {
		n, err := r.Read(chunk[:min(len(chunk), limit+1-len(buf))])
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if i := bytes.IndexByte(buf, '\n'); i >= 0 {
				return buf[:i], nil
			}
			if len(buf) > limit {
				return nil, ErrFrameTooLarge
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf, nil
			}
			return buf, err
		}
	}
}
