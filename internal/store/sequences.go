package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pose-replay/internal/pose"
)

// SequenceInfo describes a stored sequence without its frames.
type SequenceInfo struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Source        string    `json:"source,omitempty"`
	FPS           int       `json:"fps"`
	FrameCount    int       `json:"frame_count"`
	LandmarkCount int       `json:"landmark_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// SaveSequence stores seq under a new id. source records where the frames
// came from (a file path, "synthetic", "api").
func (s *Store) SaveSequence(ctx context.Context, name, source string, seq *pose.Sequence) (SequenceInfo, error) {
	if seq.Len() == 0 {
		return SequenceInfo{}, pose.ErrEmptySequence
	}
	if name == "" {
		return SequenceInfo{}, fmt.Errorf("sequence name must not be empty")
	}

	info := SequenceInfo{
		ID:         uuid.NewString(),
		Name:       name,
		Source:     source,
		FPS:        seq.FPS,
		FrameCount: seq.Len(),
		CreatedAt:  time.Now().UTC(),
	}
	for _, f := range seq.Frames {
		info.LandmarkCount += len(f.Landmarks)
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return SequenceInfo{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sequences (sequence_id, name, source, fps, frame_count, landmark_count, created_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, info.ID, info.Name, info.Source, info.FPS, info.FrameCount, info.LandmarkCount, info.CreatedAt.UnixNano())
	if err != nil {
		return SequenceInfo{}, fmt.Errorf("failed to insert sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO frames (sequence_id, frame_index, ordinal, landmarks_json)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return SequenceInfo{}, fmt.Errorf("failed to prepare frame insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range seq.Frames {
		landmarks, err := json.Marshal(f.Landmarks)
		if err != nil {
			return SequenceInfo{}, fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, info.ID, i, f.Ordinal, string(landmarks)); err != nil {
			return SequenceInfo{}, fmt.Errorf("failed to insert frame %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SequenceInfo{}, fmt.Errorf("failed to commit sequence: %w", err)
	}
	logf("saved sequence %s (%q): %d frames", info.ID, info.Name, info.FrameCount)
	return info, nil
}

// ListSequences returns every stored sequence, newest first.
func (s *Store) ListSequences(ctx context.Context) ([]SequenceInfo, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT sequence_id, name, source, fps, frame_count, landmark_count, created_unix_nanos
		FROM sequences
		ORDER BY created_unix_nanos DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	defer rows.Close()

	out := []SequenceInfo{}
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sequences: %w", err)
	}
	return out, nil
}

// GetSequenceInfo returns the metadata for id.
func (s *Store) GetSequenceInfo(ctx context.Context, id string) (SequenceInfo, error) {
	row := s.QueryRowContext(ctx, `
		SELECT sequence_id, name, source, fps, frame_count, landmark_count, created_unix_nanos
		FROM sequences
		WHERE sequence_id = ?
	`, id)
	info, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SequenceInfo{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return info, err
}

// LoadSequence reads the full sequence for id.
func (s *Store) LoadSequence(ctx context.Context, id string) (*pose.Sequence, error) {
	info, err := s.GetSequenceInfo(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, `
		SELECT ordinal, landmarks_json
		FROM frames
		WHERE sequence_id = ?
		ORDER BY frame_index ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	seq := &pose.Sequence{FPS: info.FPS, Frames: make([]pose.Frame, 0, info.FrameCount)}
	for rows.Next() {
		var (
			f   pose.Frame
			raw string
		)
		if err := rows.Scan(&f.Ordinal, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &f.Landmarks); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", len(seq.Frames), err)
		}
		seq.Frames = append(seq.Frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate frames: %w", err)
	}
	return seq, nil
}

// DeleteSequence removes id and its frames.
func (s *Store) DeleteSequence(ctx context.Context, id string) error {
	res, err := s.ExecContext(ctx, `DELETE FROM sequences WHERE sequence_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sequence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	logf("deleted sequence %s", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(sc scanner) (SequenceInfo, error) {
	var (
		info    SequenceInfo
		created int64
	)
	if err := sc.Scan(&info.ID, &info.Name, &info.Source, &info.FPS, &info.FrameCount, &info.LandmarkCount, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SequenceInfo{}, err
		}
		return SequenceInfo{}, fmt.Errorf("failed to scan sequence: %w", err)
	}
	info.CreatedAt = time.Unix(0, created).UTC()
	return info, nil
}
