package vault

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// binarySniffLen is how many leading bytes are inspected for NUL bytes
// when classifying content as binary. Matches what git itself samples.
const binarySniffLen = 8000

// BlobSHA returns the git blob object id for the given content. Using the
// git object id as the content fingerprint means local hashes compare
// directly against the SHAs the remote tree API reports.
func BlobSHA(data []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// IsBinary reports whether content looks like binary data.
func IsBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// binarySniffer records whether a NUL byte was seen in the first
// binarySniffLen bytes written through it.
type binarySniffer struct {
	seen   int
	binary bool
}

func (b *binarySniffer) Write(p []byte) (int, error) {
	if b.seen < binarySniffLen && !b.binary {
		window := p
		if rest := binarySniffLen - b.seen; len(window) > rest {
			window = window[:rest]
		}
		if bytes.IndexByte(window, 0) >= 0 {
			b.binary = true
		}
	}
	b.seen += len(p)
	return len(p), nil
}

// HashFile fingerprints a file, reading it exactly once. The size must be
// known up front because the git blob header encodes the content length.
func HashFile(path string, size int64) (*FileEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", size)

	sniffer := &binarySniffer{}
	n, err := io.Copy(io.MultiWriter(h, sniffer), file)
	if err != nil {
		return nil, err
	}
	if n != size {
		// the file changed between stat and read, fingerprint is invalid
		return nil, fmt.Errorf("file changed while hashing: %s", path)
	}

	return &FileEntry{
		Hash:     hex.EncodeToString(h.Sum(nil)),
		Size:     size,
		IsBinary: sniffer.binary,
	}, nil
}
