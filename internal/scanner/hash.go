package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// hashBlockSize is the read block size used while hashing.
const hashBlockSize = 8192

// HashFile computes the hex SHA-256 of a file's content, streaming it in
// fixed-size blocks.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrFileAccess, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	buf := make([]byte, hashBlockSize)
	for {
		n, err := f.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: failed to read %s: %v", types.ErrFileAccess, path, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Stat returns the stored modification-time representation of a file.
func Stat(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrFileAccess, err)
	}
	return types.ModTimeOf(info.ModTime()), nil
}
