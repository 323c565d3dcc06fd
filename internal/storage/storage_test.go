package storage

import (
	"context"
	"strings"
	"testing"
)

func TestObjectKeyKeepsExtension(t *testing.T) {
	key := ObjectKey("/fotos/", "Perfil.JPG")
	if !strings.HasPrefix(key, "fotos/") || !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("unexpected key %q", key)
	}
	if ObjectKey("fotos", "a.jpg") == key {
		t.Fatal("keys must be unique")
	}
}

func TestContentTypes(t *testing.T) {
	if !IsImage("image/PNG") || IsImage("application/pdf") {
		t.Fatal("image check mismatch")
	}
	if !IsDocument("application/pdf") || IsDocument("text/html") {
		t.Fatal("document check mismatch")
	}
}

func TestNoopUploader(t *testing.T) {
	if _, err := (NoopUploader{}).Upload(context.Background(), UploadInput{Key: "x"}); err == nil {
		t.Fatal("noop must fail")
	}
}
