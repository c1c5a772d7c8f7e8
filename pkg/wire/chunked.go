package wire

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	herr "github.com/Az107/HTeaPot/pkg/errors"
)

// readChunkedBody decodes an HTTP/1.1 chunked request body: each chunk
// begins with a hex length line, optionally followed by chunk extensions
// after a ';', the chunk bytes, and a trailing CRLF. A zero-length chunk
// ends the body; any trailer lines that follow are read and discarded, per
// spec.md §4.1 and the open question in §9.
func readChunkedBody(r *bufio.Reader, maxBody int64) ([]byte, error) {
	var body []byte
	var total int64

	for {
		line, err := readCRLFLine(r)
		if err != nil {
			return nil, herr.NewMalformedRequestError("read_chunk_size", err)
		}

		sizeStr := line
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			sizeStr = line[:idx]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 16, 64)
		if err != nil || size < 0 {
			return nil, herr.NewMalformedRequestError("parse_chunk_size", err)
		}

		if size == 0 {
			break
		}

		total += size
		if maxBody > 0 && total > maxBody {
			return nil, herr.NewPayloadTooLargeError("read_chunk_body", maxBody)
		}

		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, herr.NewIOError("read_chunk_body", err)
		}
		body = append(body, chunk...)

		// Trailing CRLF after the chunk data.
		if _, err := readCRLFLine(r); err != nil {
			return nil, herr.NewIOError("read_chunk_terminator", err)
		}
	}

	// Trailers, discarded per spec.md §9's open question (not merged into
	// the header map).
	for {
		line, err := readCRLFLine(r)
		if err != nil {
			return nil, herr.NewIOError("read_trailers", err)
		}
		if line == "" {
			break
		}
	}

	return body, nil
}

// readCRLFLine reads a line terminated by CRLF and returns it without the
// terminator.
func readCRLFLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// writeChunk writes one chunked-encoding segment: hex length, CRLF, bytes,
// CRLF. Passing an empty slice writes "0\r\n\r\n", which a reader takes as
// the terminating zero-length chunk; callers finish the stream with
// writeChunkTerminator.
func writeChunk(w io.Writer, data []byte) error {
	if _, err := io.WriteString(w, strconv.FormatInt(int64(len(data)), 16)+"\r\n"); err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// writeChunkTerminator writes the final "0\r\n\r\n" that ends a chunked
// body.
func writeChunkTerminator(w io.Writer) error {
	_, err := io.WriteString(w, "0\r\n\r\n")
	return err
}
