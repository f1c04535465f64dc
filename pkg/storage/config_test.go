package storage_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/orator/pkg/storage"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := storage.Config{ConnectionString: "test-connection"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Provider != storage.ProviderAzure {
		t.Errorf("provider: got %s, want %s", cfg.Provider, storage.ProviderAzure)
	}
	if cfg.ContainerName != "presentations" {
		t.Errorf("container_name: got %s, want presentations", cfg.ContainerName)
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_PROVIDER", "local")
	t.Setenv("TEST_ROOT", "/var/lib/orator")

	env := &storage.Env{
		Provider: "TEST_PROVIDER",
		Root:     "TEST_ROOT",
	}

	cfg := storage.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Provider != storage.ProviderLocal {
		t.Errorf("provider: got %s, want local", cfg.Provider)
	}
	if cfg.Root != "/var/lib/orator" {
		t.Errorf("root: got %s, want /var/lib/orator", cfg.Root)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr string
	}{
		{
			name:    "azure without credentials",
			cfg:     storage.Config{ContainerName: "presentations"},
			wantErr: "connection_string or service_url required",
		},
		{
			name:    "azure with service url",
			cfg:     storage.Config{ServiceURL: "https://acct.blob.core.windows.net/"},
			wantErr: "",
		},
		{
			name:    "memory needs nothing",
			cfg:     storage.Config{Provider: storage.ProviderMemory},
			wantErr: "",
		},
		{
			name:    "unknown provider",
			cfg:     storage.Config{Provider: "s3"},
			wantErr: "unknown storage provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFinalizeUnknownProviderIsSentinel(t *testing.T) {
	cfg := storage.Config{Provider: "s3"}
	if err := cfg.Finalize(nil); !errors.Is(err, storage.ErrUnknownProvider) {
		t.Errorf("error = %v, want %v", err, storage.ErrUnknownProvider)
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{
		Provider:         storage.ProviderAzure,
		ContainerName:    "presentations",
		ConnectionString: "base-conn",
	}

	overlay := storage.Config{ConnectionString: "overlay-conn", Root: "/tmp/blobs"}
	base.Merge(&overlay)

	if base.ContainerName != "presentations" {
		t.Errorf("container_name should remain presentations, got %s", base.ContainerName)
	}
	if base.ConnectionString != "overlay-conn" {
		t.Errorf("connection_string: got %s, want overlay-conn", base.ConnectionString)
	}
	if base.Root != "/tmp/blobs" {
		t.Errorf("root: got %s, want /tmp/blobs", base.Root)
	}
}
