package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakcast/speakcast/internal/model/apperr"
)

func TestIngestText_DerivesTitleFromFirstLine(t *testing.T) {
	res, err := IngestText("# Hello World\n\nSome body text.", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", res.Title)
}

func TestIngestText_UsesCallerTitle(t *testing.T) {
	res, err := IngestText("body text", "My Title")
	require.NoError(t, err)
	assert.Equal(t, "My Title", res.Title)
}

func TestIngestFile_RejectsInvalidUTF8(t *testing.T) {
	_, err := IngestFile([]byte{0xff, 0xfe, 0xfd}, "bad.bin")
	assert.ErrorIs(t, err, apperr.ErrUnsupportedType)
}

func TestIngestFile_UsesFilenameAsTitle(t *testing.T) {
	res, err := IngestFile([]byte("hello"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", res.Title)
	assert.Equal(t, "hello", res.RawText)
}

func TestFetcher_IngestURL_RejectsDisallowedContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("binary"))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.IngestURL(context.Background(), srv.URL)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedType)
}

func TestFetcher_IngestURL_ExtractsHTMLBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Doc Title</title></head><body><article><h1>Doc Title</h1><p>Some useful paragraph content that readability should pick up as the main article body text.</p></article></body></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	res, err := f.IngestURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RawText)
}

func TestFetcher_IngestURL_SurfacesFetchFailedOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.IngestURL(context.Background(), srv.URL)
	assert.ErrorIs(t, err, apperr.ErrFetchFailed)
}

func TestIngestGit_FailsOnUnreachableRepo(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := IngestGit(ctx, "https://invalid.example.invalid/not-a-repo.git", "")
	assert.Error(t, err)
}
