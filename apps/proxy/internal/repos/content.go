package repos

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // git object ids are sha1 by definition
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// FetchFile retrieves path at the pinned commit and rejects binary content.
func FetchFile(ctx context.Context, up Upstream, owner, repo, commitSHA, path string) (*FileContent, error) {
	raw, err := up.GetRawFile(ctx, owner, repo, path, commitSHA)
	if err != nil {
		return nil, err
	}
	if IsBinary(raw.Data) {
		return nil, BinaryContentError{Path: path}
	}
	text := string(raw.Data)
	return &FileContent{
		Path:    path,
		Text:    text,
		BlobSHA: BlobSHA(raw.Data),
		Size:    len(raw.Data),
		Digest:  Digest(text),
	}, nil
}

// IsBinary reports whether data contains a NUL byte anywhere.
func IsBinary(data []byte) bool {
	return bytes.IndexByte(data, 0) >= 0
}

// Digest is the lowercase hex sha256 of s.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// BlobSHA computes the git object id of a blob with the given content.
func BlobSHA(data []byte) string {
	h := sha1.New() //nolint:gosec // see import
	h.Write([]byte("blob " + strconv.Itoa(len(data)) + "\x00"))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
