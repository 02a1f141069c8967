// Package catalog runs the metadata backfill job: segments and queue items
// saved without a title, duration, or thumbnail get their metadata resolved
// through the YouTube client and written back.
package catalog

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/onnwee/clipdeck/telemetry"
	"github.com/onnwee/clipdeck/youtubeapi"
)

const defaultBatchSize = 25

// missingRow is one record lacking metadata.
type missingRow struct {
	table   string // "segments" or "queue_items"
	id      string
	videoID string
}

// BackfillMetadata resolves missing titles/durations/thumbnails for up to
// batchSize rows and returns the number of rows updated. Skipped entirely
// while the client is degraded so substitute payloads never reach the tables.
func BackfillMetadata(ctx context.Context, db *sql.DB, yt *youtubeapi.Client, batchSize int) (int, error) {
	if yt == nil || yt.Degraded() {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	rows, err := findMissing(ctx, db, batchSize)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, r := range rows {
		select {
		case <-ctx.Done():
			return updated, ctx.Err()
		default:
		}
		info, degraded := yt.Video(ctx, r.videoID)
		if degraded {
			// Upstream went away mid-batch; stop rather than persist
			// placeholder metadata.
			break
		}
		var execErr error
		switch r.table {
		case "segments":
			_, execErr = db.ExecContext(ctx, `UPDATE segments SET
				title=COALESCE(NULLIF(title,''), $1),
				duration_seconds=CASE WHEN COALESCE(duration_seconds,0)=0 THEN $2 ELSE duration_seconds END,
				thumbnail_url=COALESCE(NULLIF(thumbnail_url,''), $3),
				updated_at=NOW()
				WHERE id=$4`, info.Title, info.DurationSeconds, info.Thumbnail, r.id)
		case "queue_items":
			_, execErr = db.ExecContext(ctx, `UPDATE queue_items SET
				title=COALESCE(NULLIF(title,''), $1),
				duration_seconds=CASE WHEN COALESCE(duration_seconds,0)=0 THEN $2 ELSE duration_seconds END,
				thumbnail_url=COALESCE(NULLIF(thumbnail_url,''), $3),
				updated_at=NOW()
				WHERE id=$4`, info.Title, info.DurationSeconds, info.Thumbnail, r.id)
		}
		if execErr != nil {
			slog.Warn("metadata update failed", slog.String("table", r.table), slog.String("id", r.id), slog.Any("err", execErr))
			continue
		}
		updated++
		// Light pacing between lookups to stay inside API quota.
		select {
		case <-ctx.Done():
			return updated, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return updated, nil
}

func findMissing(ctx context.Context, db *sql.DB, limit int) ([]missingRow, error) {
	q := `
		SELECT 'segments' AS tbl, id, video_id FROM segments
		WHERE COALESCE(title,'')='' OR COALESCE(duration_seconds,0)=0 OR COALESCE(thumbnail_url,'')=''
		UNION ALL
		SELECT 'queue_items', id, video_id FROM queue_items
		WHERE COALESCE(title,'')='' OR COALESCE(duration_seconds,0)=0 OR COALESCE(thumbnail_url,'')=''
		LIMIT $1`
	rows, err := db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []missingRow
	for rows.Next() {
		var r missingRow
		if err := rows.Scan(&r.table, &r.id, &r.videoID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StartBackfillJob periodically backfills missing metadata until ctx is done.
// Interval and batch size come from CATALOG_BACKFILL_INTERVAL and
// CATALOG_BACKFILL_BATCH.
func StartBackfillJob(ctx context.Context, db *sql.DB, yt *youtubeapi.Client) {
	interval := 10 * time.Minute
	if v := os.Getenv("CATALOG_BACKFILL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}
	batch := defaultBatchSize
	if s := os.Getenv("CATALOG_BACKFILL_BATCH"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			batch = n
		}
	}
	slog.Info("metadata backfill job starting", slog.Duration("interval", interval), slog.Int("batch", batch))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	runOnce(ctx, db, yt, batch)
	for {
		select {
		case <-ctx.Done():
			slog.Info("metadata backfill job stopped")
			return
		case <-ticker.C:
			runOnce(ctx, db, yt, batch)
		}
	}
}

func runOnce(ctx context.Context, db *sql.DB, yt *youtubeapi.Client, batch int) {
	if telemetry.BackfillCycles != nil {
		telemetry.BackfillCycles.Inc()
	}
	n, err := BackfillMetadata(ctx, db, yt, batch)
	if err != nil && ctx.Err() == nil {
		slog.Warn("metadata backfill", slog.Any("err", err))
		return
	}
	if n > 0 {
		if telemetry.BackfillUpdated != nil {
			telemetry.BackfillUpdated.Add(float64(n))
		}
		slog.Info("metadata backfill updated rows", slog.Int("count", n))
	}
	if db != nil {
		_, _ = db.ExecContext(ctx, `INSERT INTO kv (key,value,updated_at) VALUES ('job_backfill_last',$1,NOW())
			ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`, time.Now().UTC().Format(time.RFC3339))
	}
}
