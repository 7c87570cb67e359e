package tui

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxAttachmentSize bounds what gets inlined into a data URI; both
// backends reject multi-megabyte image payloads anyway.
const maxAttachmentSize = 8 << 20

var imageMIMEs = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// loadAttachment reads an image file into a data URI for the next send.
func loadAttachment(path string) (string, error) {
	mime, ok := imageMIMEs[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", filepath.Ext(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > maxAttachmentSize {
		return "", fmt.Errorf("%s is too large to attach", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// attach loads path and stages it for the next message.
func (m *Model) attach(path string) {
	uri, err := loadAttachment(path)
	if err != nil {
		m.notice = err.Error()
		return
	}
	m.pendingImage = uri
	m.notice = "attached " + filepath.Base(path) + "; it will be sent with your next message"
}
