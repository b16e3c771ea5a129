package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quicksale/backend/internal/domain"
)

// Sink delivers an encoded backup somewhere outside the process and returns
// where it ended up.
type Sink interface {
	Deliver(ctx context.Context, file File) (string, error)
}

// Opener supplies the raw content of a backup chosen by the user. It returns
// domain.ErrCancelled when nothing was chosen.
type Opener interface {
	Open(ctx context.Context) ([]byte, error)
}

// Read runs o and folds an empty selection into domain.ErrCancelled.
func Read(ctx context.Context, o Opener) ([]byte, error) {
	if o == nil {
		return nil, domain.ErrCancelled
	}
	content, err := o.Open(ctx)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, domain.ErrCancelled
	}
	return content, nil
}

// FileOpener reads a backup from a local path. An empty path means the user
// picked nothing.
type FileOpener struct {
	Path string
}

func (o FileOpener) Open(ctx context.Context) ([]byte, error) {
	if strings.TrimSpace(o.Path) == "" {
		return nil, domain.ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(o.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open backup %s: %w", o.Path, domain.ErrNotFound)
	}
	return content, err
}

// BytesOpener hands over content already in memory, such as an upload body.
type BytesOpener []byte

func (o BytesOpener) Open(context.Context) ([]byte, error) {
	return []byte(o), nil
}

// DirSink writes backups into a local directory.
type DirSink struct {
	Dir string
}

func (s DirSink) Deliver(ctx context.Context, file File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	target := filepath.Join(s.Dir, filepath.Base(file.Name))
	tmp, err := os.CreateTemp(s.Dir, ".backup-*")
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	if _, err := tmp.Write(file.Content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write backup file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close backup file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("rename backup file: %w", err)
	}
	return target, nil
}

// NopSink discards backups. Used when no delivery target is configured.
type NopSink struct{}

func (NopSink) Deliver(context.Context, File) (string, error) { return "", nil }
