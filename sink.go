package main

import "bytes"

// lineWriter adapts arbitrary text writes into complete lines. Writes append
// to an internal buffer; every newline-terminated segment is emitted
// immediately (newline stripped, in order) and any trailing partial segment
// stays buffered for the next write. Flush emits the remainder so nothing is
// dropped at end of invocation.
//
// Not safe for concurrent writers; the flashing subprocess is the only
// producer because stdout and stderr share one pipe.
type lineWriter struct {
	buf  []byte
	emit func(line string)
}

func newLineWriter(emit func(line string)) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := string(w.buf[:i])
		w.buf = w.buf[i+1:]
		w.emit(line)
	}
	return len(p), nil
}

// Flush emits whatever partial segment remains, even without a trailing
// newline.
func (w *lineWriter) Flush() {
	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = w.buf[:0]
	}
}
