package notesapp

import (
	"context"
	"fmt"
	"time"

	"github.com/notesapp/notesd/pkg/store"
	"github.com/rs/zerolog"
)

// Sync copies notes from one backend to the other. IDs, versions and
// timestamps are preserved. Only notes updated at or after since are copied;
// a zero since copies everything. The destination schema is migrated first.
//
// Run it while the serving instances are in read-only mode, otherwise writes
// landing during the copy may be missed.
func Sync(ctx context.Context, config *Config, from, to string, since time.Time, log zerolog.Logger) (store.CopyStats, error) {
	if from == to {
		return store.CopyStats{}, fmt.Errorf("source and destination are both %q", from)
	}

	src, err := OpenStore(ctx, config, from, log)
	if err != nil {
		return store.CopyStats{}, err
	}
	defer src.Close()

	dst, err := OpenStore(ctx, config, to, log)
	if err != nil {
		return store.CopyStats{}, err
	}
	defer dst.Close()

	if err := dst.Migrate(ctx); err != nil {
		return store.CopyStats{}, fmt.Errorf("failed to migrate %s: %w", to, err)
	}

	log.Info().Str("from", from).Str("to", to).Time("since", since).Msg("starting sync")
	stats, err := store.Copy(ctx, src, dst, since)
	if err != nil {
		return stats, fmt.Errorf("sync %s -> %s failed: %w", from, to, err)
	}
	log.Info().Int("scanned", stats.Scanned).Int("copied", stats.Copied).Msg("sync complete")
	return stats, nil
}

// ParseSince accepts an RFC 3339 timestamp or a duration relative to now
// ("24h"). An empty string means the beginning of time.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative duration %q", s)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since %q: want RFC 3339 time or duration", s)
	}
	return t, nil
}
