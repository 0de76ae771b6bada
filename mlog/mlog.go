package mlog

import (
	"bufio"
	"io"
	"strings"

	"github.com/cubefs/metatree/util"
)

const defaultBufferSize = 1 << 16

// Writer appends text lines to a metadata log. Lines are buffered; Flush
// pushes them down the chain, Sync additionally fsyncs the anchor file.
type Writer struct {
	bw   *bufio.Writer
	file File
}

// NewWriter buffers lines onto w. file, when not nil, is the durability
// anchor Sync and Close act on; w usually wraps that same file with rate
// limiting or timing shims.
func NewWriter(w io.Writer, file File) *Writer {
	return &Writer{
		bw:   bufio.NewWriterSize(w, defaultBufferSize),
		file: file,
	}
}

func (w *Writer) WriteLine(line string) error {
	if _, err := w.bw.WriteString(line); err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

// WriteRecord writes one comma separated record as a single line.
func (w *Writer) WriteRecord(fields ...string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.bw.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.bw.WriteString(field); err != nil {
			return err
		}
	}
	return w.bw.WriteByte('\n')
}

func (w *Writer) Flush() error {
	return w.bw.Flush()
}

func (w *Writer) Sync() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

func (w *Writer) Close() error {
	err := w.Sync()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader reads a metadata log line by line.
type Reader struct {
	br   *bufio.Reader
	file File
}

// NewReader reads lines from r. file, when not nil, is closed by Close; r
// usually wraps that same file with rate limiting or timing shims.
func NewReader(r io.Reader, file File) *Reader {
	return &Reader{
		br:   bufio.NewReaderSize(r, defaultBufferSize),
		file: file,
	}
}

// ReadLine returns the next line without its trailing newline. io.EOF marks
// a clean end. A final line cut short by a crash comes back together with
// io.ErrUnexpectedEOF; the caller decides whether to drop it.
func (r *Reader) ReadLine() (string, error) {
	// ReadBytes hands over a freshly owned slice, the string can share it.
	line, err := r.br.ReadBytes('\n')
	if err == nil {
		return util.BytesToString(line[:len(line)-1]), nil
	}
	if err == io.EOF {
		if len(line) == 0 {
			return "", io.EOF
		}
		return util.BytesToString(line), io.ErrUnexpectedEOF
	}
	return "", err
}

// ReadRecord splits the next line on commas.
func (r *Reader) ReadRecord() ([]string, error) {
	line, err := r.ReadLine()
	if err != nil {
		return nil, err
	}
	return strings.Split(line, ","), nil
}

func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
