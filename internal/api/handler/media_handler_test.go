package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"gocloud.dev/blob/memblob"

	"github.com/ocandle/marketplace/internal/core/ports"
	"github.com/ocandle/marketplace/internal/infrastructure/media"
)

func TestMediaHandler_Serve(t *testing.T) {
	store := media.NewBlobStore(memblob.OpenBucket(nil), "/media", zerolog.Nop())
	t.Cleanup(func() { _ = store.Close() })

	img, err := store.Upload(context.Background(), "products", ports.ImageUpload{Filename: "a.png", Data: pngHeader})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	h := NewMediaHandler(store)
	e := newTestEcho()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, img.URL, nil), rec)
	c.SetParamNames("*")
	c.SetParamValues(strings.TrimPrefix(img.URL, "/media/"))
	if err := h.Serve(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	if rec.Body.String() != string(pngHeader) {
		t.Fatal("body does not match the stored image")
	}
}

func TestMediaHandler_NotFound(t *testing.T) {
	store := media.NewBlobStore(memblob.OpenBucket(nil), "/media", zerolog.Nop())
	t.Cleanup(func() { _ = store.Close() })
	h := NewMediaHandler(store)
	e := newTestEcho()

	for _, id := range []string{"products/missing.png", "../secret", ""} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/media/x", nil), httptest.NewRecorder())
		c.SetParamNames("*")
		c.SetParamValues(id)

		var he *echo.HTTPError
		if err := h.Serve(c); !errors.As(err, &he) || he.Code != http.StatusNotFound {
			t.Fatalf("%q: expected 404, got %v", id, err)
		}
	}
}
