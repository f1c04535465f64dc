package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/orator/pkg/lifecycle"
	"github.com/JaimeStill/orator/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=oratorstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/oratorstore;"

func newLocal(t *testing.T) storage.System {
	t.Helper()

	cfg := &storage.Config{Provider: storage.ProviderLocal, Root: t.TempDir()}
	sys, err := storage.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("startup error = %v", err)
	}
	return sys
}

func systems(t *testing.T) map[string]storage.System {
	return map[string]storage.System{
		"local":  newLocal(t),
		"memory": storage.NewMemory(),
	}
}

func TestNewAzureFromConnectionString(t *testing.T) {
	cfg := &storage.Config{
		Provider:         storage.ProviderAzure,
		ContainerName:    "presentations",
		ConnectionString: azuriteConnString,
	}

	sys, err := storage.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys == nil {
		t.Fatal("New() returned nil system")
	}
}

func TestNewInvalidConnectionString(t *testing.T) {
	cfg := &storage.Config{
		Provider:         storage.ProviderAzure,
		ContainerName:    "presentations",
		ConnectionString: "not-a-connection-string",
	}

	if _, err := storage.New(cfg, slog.Default()); err == nil {
		t.Fatal("expected error for invalid connection string, got nil")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	cfg := &storage.Config{Provider: "ftp"}

	_, err := storage.New(cfg, slog.Default())
	if !errors.Is(err, storage.ErrUnknownProvider) {
		t.Fatalf("New() error = %v, want %v", err, storage.ErrUnknownProvider)
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, sys := range systems(t) {
		t.Run(name, func(t *testing.T) {
			key := storage.Join("ABC010101XYZ", "status.json")

			if err := sys.Upload(ctx, key, bytes.NewReader([]byte(`{"status":"processing"}`)), "application/json"); err != nil {
				t.Fatalf("Upload() error = %v", err)
			}
			if err := sys.Upload(ctx, key, bytes.NewReader([]byte(`{"status":"done"}`)), "application/json"); err != nil {
				t.Fatalf("Upload() overwrite error = %v", err)
			}

			rc, err := sys.Download(ctx, key)
			if err != nil {
				t.Fatalf("Download() error = %v", err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()

			if string(data) != `{"status":"done"}` {
				t.Errorf("Download() = %s, want overwritten content", data)
			}

			ok, err := sys.Exists(ctx, key)
			if err != nil || !ok {
				t.Errorf("Exists() = %v, %v; want true, nil", ok, err)
			}

			if err := sys.Delete(ctx, key); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}

			if _, err := sys.Download(ctx, key); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Download() after delete error = %v, want %v", err, storage.ErrNotFound)
			}
			if err := sys.Delete(ctx, key); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Delete() missing error = %v, want %v", err, storage.ErrNotFound)
			}
		})
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()

	for name, sys := range systems(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"b/status.json", "a/status.json", "a/result.json"} {
				if err := sys.Upload(ctx, key, bytes.NewReader([]byte("x")), "text/plain"); err != nil {
					t.Fatalf("Upload(%s) error = %v", key, err)
				}
			}

			got, err := sys.List(ctx, "a/")
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}

			want := []string{"a/result.json", "a/status.json"}
			if !slices.Equal(got, want) {
				t.Errorf("List() = %v, want %v", got, want)
			}
		})
	}
}

func TestUsage(t *testing.T) {
	ctx := context.Background()

	for name, sys := range systems(t) {
		t.Run(name, func(t *testing.T) {
			blobs := map[string]string{
				"a/status.json": "12345",
				"a/result.json": "123",
				"b/status.json": "1234567",
			}
			for key, data := range blobs {
				if err := sys.Upload(ctx, key, strings.NewReader(data), "text/plain"); err != nil {
					t.Fatalf("Upload(%s) error = %v", key, err)
				}
			}

			all, err := sys.Usage(ctx, "")
			if err != nil {
				t.Fatalf("Usage() error = %v", err)
			}
			if all.Objects != 3 || all.Bytes != 15 {
				t.Errorf("Usage(\"\") = %+v, want 3 objects 15 bytes", all)
			}

			a, err := sys.Usage(ctx, "a/")
			if err != nil {
				t.Fatalf("Usage(a/) error = %v", err)
			}
			if a.Objects != 2 || a.Bytes != 8 {
				t.Errorf("Usage(a/) = %+v, want 2 objects 8 bytes", a)
			}
		})
	}
}

func TestKeyValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{
			name:    "empty key",
			key:     "",
			wantErr: storage.ErrEmptyKey,
		},
		{
			name:    "path traversal",
			key:     "tenant/../secrets/key",
			wantErr: storage.ErrInvalidKey,
		},
		{
			name:    "absolute path",
			key:     "/etc/passwd",
			wantErr: storage.ErrInvalidKey,
		},
		{
			name:    "backslash separator",
			key:     `tenant\status.json`,
			wantErr: storage.ErrInvalidKey,
		},
	}

	ctx := context.Background()

	for name, sys := range systems(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				if err := sys.Upload(ctx, tt.key, bytes.NewReader(nil), "text/plain"); !errors.Is(err, tt.wantErr) {
					t.Errorf("Upload() error = %v, want %v", err, tt.wantErr)
				}
				if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.wantErr) {
					t.Errorf("Download() error = %v, want %v", err, tt.wantErr)
				}
				if err := sys.Delete(ctx, tt.key); !errors.Is(err, tt.wantErr) {
					t.Errorf("Delete() error = %v, want %v", err, tt.wantErr)
				}
				if _, err := sys.Exists(ctx, tt.key); !errors.Is(err, tt.wantErr) {
					t.Errorf("Exists() error = %v, want %v", err, tt.wantErr)
				}
			})
		}
	}
}
