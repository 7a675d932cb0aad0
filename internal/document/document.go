package document

import (
	"encoding/base64"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docstruct/constants"
)

// Document is an immutable input to the pipeline: content plus its detected
// media kind. The core never mutates documents.
type Document struct {
	ID      uuid.UUID
	Name    string
	Kind    constants.MediaKind
	Content []byte
	Pages   int // PDF page count when known, 0 otherwise
}

// New builds a Document from a filename and raw content, detecting the media
// kind from the extension.
func New(name string, content []byte) Document {
	return Document{
		ID:      uuid.New(),
		Name:    name,
		Kind:    constants.MapExtToKind(filepath.Ext(name)),
		Content: content,
	}
}

// Text returns the document content as text. Only meaningful for TEXT kind.
func (d Document) Text() string {
	return string(d.Content)
}

// DataURL encodes the document content as a base64 data URL for vision
// prompts. Only meaningful for IMAGE kind.
func (d Document) DataURL() string {
	ext := constants.NormalizeExt(filepath.Ext(d.Name))
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "png":
			mt = "image/png"
		default:
			mt = "application/octet-stream"
		}
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(d.Content)
}

// OversizedForVision reports whether the content exceeds the vision attach cap.
func (d Document) OversizedForVision() bool {
	return len(d.Content) > constants.MaxVisionMBDefault*1024*1024
}

// AllowedName reports whether the filename carries an ingestable extension.
func AllowedName(name string) bool {
	ext := constants.NormalizeExt(filepath.Ext(name))
	_, ok := constants.AllowedExtensions[ext]
	return ok && !strings.HasPrefix(filepath.Base(name), ".")
}
