package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/orator/pkg/storage"
)

const (
	statusObject     = "status.json"
	resultObject     = "result.json"
	transcriptObject = "transcript.txt"
	mediaObject      = "presentation"
)

// store reads and writes the per-tenant objects of the persisted layout.
type store struct {
	objects storage.System
}

func (s store) putStatus(ctx context.Context, doc StatusDocument) error {
	return s.putJSON(ctx, storage.Join(doc.TenantID, statusObject), doc)
}

func (s store) status(ctx context.Context, tenantID string) (StatusDocument, error) {
	var doc StatusDocument
	err := s.getJSON(ctx, storage.Join(tenantID, statusObject), &doc)
	return doc, err
}

func (s store) putResult(ctx context.Context, tenantID string, result *AnalysisResult) error {
	if err := s.putJSON(ctx, storage.Join(tenantID, resultObject), result); err != nil {
		return err
	}
	return s.objects.Upload(
		ctx,
		storage.Join(tenantID, transcriptObject),
		strings.NewReader(result.Transcript),
		"text/plain; charset=utf-8",
	)
}

// retainMedia keeps the source presentation next to its analysis.
func (s store) retainMedia(ctx context.Context, tenantID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return s.objects.Upload(ctx, storage.Join(tenantID, mediaObject+ext), f, contentType)
}

// tenants lists every tenant that has a status document.
func (s store) tenants(ctx context.Context) ([]string, error) {
	keys, err := s.objects.List(ctx, "")
	if err != nil {
		return nil, err
	}

	out := make([]string, 0)
	for _, k := range keys {
		if tenant, ok := strings.CutSuffix(k, "/"+statusObject); ok && validTenant(tenant) {
			out = append(out, tenant)
		}
	}
	return out, nil
}

func (s store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.objects.Upload(ctx, key, bytes.NewReader(data), "application/json")
}

func (s store) getJSON(ctx context.Context, key string, v any) error {
	rc, err := s.objects.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
