package media

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"

	"media-catalog/internal/logging"
)

// quickHashChunk is read from each end of a file for QuickHash.
const quickHashChunk = 64 * 1024

// QuickHash returns a content fingerprint built from the file size and its
// first and last 64KB. Files no larger than two chunks are hashed whole.
func QuickHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	var sz [8]byte
	binary.LittleEndian.PutUint64(sz[:], uint64(size))
	h.Write(sz[:])

	if size <= 2*quickHashChunk {
		if _, err := io.Copy(h, f); err != nil {
			return "", fmt.Errorf("failed to hash %s: %w", path, err)
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	buf := make([]byte, quickHashChunk)
	if _, err := io.ReadFull(f, buf); err != nil {
		return "", fmt.Errorf("failed to read head of %s: %w", path, err)
	}
	h.Write(buf)
	if _, err := f.ReadAt(buf, size-quickHashChunk); err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read tail of %s: %w", path, err)
	}
	h.Write(buf)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CRC32 returns the IEEE checksum of the whole file.
func CRC32(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}
