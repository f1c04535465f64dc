package transcription

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// formField is one part of a multipart request. A field with a path is a
// file upload read from disk as the body is written.
type formField struct {
	name  string
	value string
	path  string
}

func writeForm(mw *multipart.Writer, fields []formField) error {
	for _, f := range fields {
		if f.path == "" {
			if err := mw.WriteField(f.name, f.value); err != nil {
				return err
			}
			continue
		}
		if err := writeFile(mw, f.name, f.path); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFile(mw *multipart.Writer, name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer src.Close()

	fw, err := mw.CreateFormFile(name, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, src); err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	return nil
}

// streamForm encodes fields into a pipe as the returned reader is consumed,
// so audio is never held in memory.
func streamForm(fields []formField) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, fields))
	}()

	return pr, mw.FormDataContentType()
}

// spoolForm encodes fields into a temporary file in dir. The body is
// seekable, so a retrying pipeline can replay it. The caller removes the file.
func spoolForm(dir string, fields []formField) (*os.File, string, error) {
	f, err := os.CreateTemp(dir, "form-*.tmp")
	if err != nil {
		return nil, "", fmt.Errorf("create form body: %w", err)
	}

	mw := multipart.NewWriter(f)
	if err := writeForm(mw, fields); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, "", err
	}

	return f, mw.FormDataContentType(), nil
}
