package provider

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const defaultImageMIME = "image/jpeg"

// decodeDataURI splits a data URI into its MIME type and decoded bytes.
// A missing or malformed MIME header falls back to image/jpeg, matching
// how attachments were stored before the header was recorded.
func decodeDataURI(uri string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	mime = defaultImageMIME
	if m, _, found := strings.Cut(header, ";"); found && m != "" {
		mime = m
	} else if !found && header != "" && !strings.EqualFold(header, "base64") {
		mime = header
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI payload: %w", err)
	}
	return mime, data, nil
}
