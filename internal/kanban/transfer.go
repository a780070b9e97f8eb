package kanban

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kingrea/taskboard/internal/board"
)

// ExportFileName returns the download name used for a board exported at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("kanban-board-%s.json", now.Format("2006-01-02"))
}

// EncodeBoard renders b as indented JSON.
func EncodeBoard(b board.Board) ([]byte, error) {
	if b == nil {
		b = board.Board{}
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("kanban: encode board: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeBoard parses an exported board. The payload must be a JSON array
// holding the three fixed columns; in strict mode every task must also pass
// validation.
func DecodeBoard(data []byte, strict bool) (board.Board, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a list of columns", ErrInvalidImport)
	}
	var decoded board.Board
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	for i := range decoded {
		if decoded[i].Tasks == nil {
			decoded[i].Tasks = []board.Task{}
		}
	}
	check := decoded.ValidateColumns
	if strict {
		check = decoded.Validate
	}
	if err := check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return decoded, nil
}

// Export writes the present board to dir and returns the written path.
func (s *Service) Export(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := EncodeBoard(s.history.Present())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("kanban: ensure export dir: %w", err)
	}
	path := filepath.Join(dir, ExportFileName(s.now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("kanban: write export %s: %w", path, err)
	}
	s.logger.Infow("Exported board", "path", path, "tasks", s.history.Present().TaskCount())
	return path, nil
}

// Import replaces the board with the one read from r. The replacement is a
// single undoable step. On any failure the board is left unchanged.
func (s *Service) Import(ctx context.Context, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: read: %v", ErrInvalidImport, err)
	}
	imported, err := DecodeBoard(data, s.strictImport)
	if err != nil {
		s.logger.Warnw("Rejected board import", "error", err)
		return err
	}
	if err := s.commit(ctx, imported); err != nil {
		return err
	}
	s.logger.Infow("Imported board", "tasks", imported.TaskCount())
	return nil
}

// ImportFile opens path and imports it.
func (s *Service) ImportFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	defer f.Close()
	return s.Import(ctx, f)
}
