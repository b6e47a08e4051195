// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package paging

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

// NonceSize is the secretbox nonce length prepended to every token.
const NonceSize = 24

// ExportCursor is the resumable position of an export stream: the sort values
// of the last exported hit, bound to the index set and sort fields they belong to.
type ExportCursor struct {
	IndexSetID   int      `json:"index_set_id"`
	SortedFields []string `json:"sorted_fields"`
	SearchAfter  []any    `json:"search_after"`
	Exported     int      `json:"exported"`
}

// DecodePageToken takes a base64-encoded, secretbox-encrypted token and returns the export cursor.
// Returns an error if decoding, decryption, or unmarshaling fails.
func DecodePageToken(ctx context.Context, encoded string, secretKey *[32]byte) (*ExportCursor, error) {

	slog.DebugContext(ctx, "decoding page token",
		"encoded_token", encoded,
	)

	encrypted, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.NewValidation("invalid encoded page token", err)
	}

	if len(encrypted) < NonceSize+secretbox.Overhead {
		return nil, errors.NewValidation(
			"invalid page token length",
			fmt.Errorf("expected at least %d bytes, got %d", NonceSize+secretbox.Overhead, len(encrypted)),
		)
	}

	var decryptNonce [NonceSize]byte
	copy(decryptNonce[:], encrypted[:NonceSize])
	decrypted, ok := secretbox.Open(nil, encrypted[NonceSize:], &decryptNonce, secretKey)
	if !ok {
		return nil, errors.NewValidation("failed to decrypt page token")
	}

	// sort values keep their exact textual form; large integer keys do not survive float64
	var cursor ExportCursor
	dec := json.NewDecoder(bytes.NewReader(decrypted))
	dec.UseNumber()
	if err := dec.Decode(&cursor); err != nil {
		return nil, errors.NewValidation("failed to unmarshal page token", err)
	}
	if len(cursor.SearchAfter) != len(cursor.SortedFields) {
		return nil, errors.NewValidation(
			"page token cursor does not match its sort fields",
			fmt.Errorf("%d values for %d fields", len(cursor.SearchAfter), len(cursor.SortedFields)),
		)
	}

	slog.DebugContext(ctx, "decoded page token successfully",
		"index_set_id", cursor.IndexSetID,
		"search_after", cursor.SearchAfter,
	)

	return &cursor, nil
}

// EncodePageToken encrypts the cursor with secretbox and returns a URL-safe base64 token.
func EncodePageToken(cursor ExportCursor, secretKey *[32]byte) (string, error) {
	encodedCursor, err := json.Marshal(cursor)
	if err != nil {
		return "", errors.NewUnexpected("failed to marshal export cursor", err)

	}

	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", errors.NewUnexpected("failed to generate nonce for page token", err)
	}

	encrypted := secretbox.Seal(nonce[:], encodedCursor, &nonce, secretKey)

	token := base64.RawURLEncoding.EncodeToString(encrypted)
	return token, nil
}
