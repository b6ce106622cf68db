package licensing

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/golang/snappy"
)

// Snapshot format: a magic header followed by snappy-compressed blocks.
// Block layout: [DataLen:4][Checksum:4][Data:N], big endian, checksum
// over the compressed bytes.
var snapshotMagic = []byte("NXSNAP1\n")

const snapshotBlockSize = 64 * 1024

// WriteSnapshot serializes the document and writes it to w as a
// compressed snapshot
func WriteSnapshot(w io.Writer, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return writeSnapshotBytes(w, data)
}

// ReadSnapshot decodes a compressed snapshot back into a document
func ReadSnapshot(r io.Reader) (*Document, error) {
	data, err := readSnapshotBytes(r)
	if err != nil {
		return nil, err
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	doc.normalize()

	return doc, nil
}

func writeSnapshotBytes(w io.Writer, data []byte) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(snapshotMagic); err != nil {
		return err
	}

	for start := 0; start < len(data); start += snapshotBlockSize {
		end := start + snapshotBlockSize
		if end > len(data) {
			end = len(data)
		}

		block := snappy.Encode(nil, data[start:end])

		if err := binary.Write(bw, binary.BigEndian, uint32(len(block))); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.BigEndian, crc32.ChecksumIEEE(block)); err != nil {
			return err
		}
		if _, err := bw.Write(block); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func readSnapshotBytes(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	if string(magic) != string(snapshotMagic) {
		return nil, fmt.Errorf("not a snapshot file")
	}

	var out []byte
	for {
		var blockLen, checksum uint32
		if err := binary.Read(br, binary.BigEndian, &blockLen); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read block length: %w", err)
		}
		if err := binary.Read(br, binary.BigEndian, &checksum); err != nil {
			return nil, fmt.Errorf("failed to read block checksum: %w", err)
		}

		// Writers never emit blocks larger than one compressed block's
		// worst case, so anything bigger is corruption. Checking here
		// keeps a mangled length field from forcing a huge allocation.
		if int(blockLen) > snappy.MaxEncodedLen(snapshotBlockSize) {
			return nil, fmt.Errorf("snapshot block length %d exceeds maximum", blockLen)
		}

		block := make([]byte, blockLen)
		if _, err := io.ReadFull(br, block); err != nil {
			return nil, fmt.Errorf("failed to read block: %w", err)
		}

		if crc32.ChecksumIEEE(block) != checksum {
			return nil, fmt.Errorf("snapshot block checksum mismatch")
		}

		data, err := snappy.Decode(nil, block)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress block: %w", err)
		}
		out = append(out, data...)
	}

	return out, nil
}

func writeSnapshotFile(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if err := writeSnapshotBytes(f, data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}

func readSnapshotFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readSnapshotBytes(f)
}
