package store

import (
	"context"
	"fmt"
	"time"
)

// CopyStats reports what a [Copy] run did.
type CopyStats struct {
	Scanned int
	Copied  int
}

// Copy writes every note of src that was modified at or after since into dst
// with [Store.PutNote], so IDs, versions and timestamps survive the move.
// A zero since copies everything. Notes deleted from src are not removed
// from dst.
//
// Copy is meant to run while the application is in read-only mode; otherwise
// writes that land during the copy may be missed and a later run is needed.
func Copy(ctx context.Context, src, dst Store, since time.Time) (CopyStats, error) {
	var stats CopyStats

	notes, err := src.ListNotes(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list source notes: %w", err)
	}

	for _, note := range notes {
		stats.Scanned++
		if !since.IsZero() && note.UpdatedAt.Before(since) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := dst.PutNote(ctx, note); err != nil {
			return stats, fmt.Errorf("failed to copy note %s: %w", note.ID, err)
		}
		stats.Copied++
	}

	return stats, nil
}
