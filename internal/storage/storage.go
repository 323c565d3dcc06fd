package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// UploadInput representa uma operação de upload simples.
type UploadInput struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
}

// UploadResult descreve o artefato persistido.
type UploadResult struct {
	Key  string
	URL  string
	ETag string
}

// Uploader define comportamento básico para armazenar blobs.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

// ObjectKey monta uma chave única dentro da pasta, preservando a extensão.
func ObjectKey(folder, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return path.Join(strings.Trim(folder, "/"), fmt.Sprintf("%s%s", uuid.NewString(), ext))
}

var (
	imageTypes    = typeSet("image/jpeg", "image/png", "image/webp")
	documentTypes = typeSet(
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"image/jpeg",
		"image/png",
	)
)

func typeSet(types ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// IsImage indica tipos aceites para fotografias de perfil.
func IsImage(contentType string) bool {
	_, ok := imageTypes[strings.ToLower(contentType)]
	return ok
}

// IsDocument indica tipos aceites para documentos de candidatos.
func IsDocument(contentType string) bool {
	_, ok := documentTypes[strings.ToLower(contentType)]
	return ok
}
