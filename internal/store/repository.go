package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kingrea/taskboard/internal/board"
)

// BoardState loads and saves the present board state.
type BoardState interface {
	Load(ctx context.Context) (board.Board, error)
	Save(ctx context.Context, b board.Board) error
}

// BoardRepository stores the present board under a single key.
type BoardRepository struct {
	kv  KV
	key string
}

// NewBoardRepository binds the repository to key inside kv.
func NewBoardRepository(kv KV, key string) *BoardRepository {
	return &BoardRepository{kv: kv, key: key}
}

// Key returns the storage key of the board.
func (r *BoardRepository) Key() string {
	return r.key
}

// Load reads the stored board. It returns ErrNotFound when nothing has been
// saved yet.
func (r *BoardRepository) Load(ctx context.Context) (board.Board, error) {
	data, err := r.kv.Get(ctx, r.key)
	if err != nil {
		return nil, err
	}
	var b board.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("store: decode board %s: %w", r.key, err)
	}
	return b, nil
}

// Save writes the board as a JSON column array.
func (r *BoardRepository) Save(ctx context.Context, b board.Board) error {
	encoded, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("store: encode board: %w", err)
	}
	return r.kv.Set(ctx, r.key, encoded)
}
