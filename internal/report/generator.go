package report

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/listenupapp/library-report/internal/catalog"
)

// Generator builds reports with a fixed list limit.
type Generator struct {
	logger *slog.Logger
	limit  int
}

// NewGenerator creates a generator. A limit below 1 falls back to DefaultLimit.
func NewGenerator(logger *slog.Logger, limit int) *Generator {
	if limit < 1 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{logger: logger, limit: limit}
}

// Limit returns how many items the generator lists.
func (g *Generator) Limit() int {
	return g.limit
}

// Build reads everything the report needs from cat.
func (g *Generator) Build(ctx context.Context, cat catalog.Catalog) (*Report, error) {
	start := time.Now()

	summary, err := Summarize(ctx, cat)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("catalog summarized",
		"items", summary.ItemCount,
		"playlists", summary.PlaylistCount,
		"media_folder", summary.MediaFolder,
	)

	entries := make([]Entry, 0, min(g.limit, summary.ItemCount))
	for e, err := range ListFirst(ctx, cat, g.limit) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	total, err := TotalPlayCount(ctx, cat)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("report built",
		"listed", len(entries),
		"total_play_count", total,
		"duration", time.Since(start),
	)

	return &Report{
		Summary:        summary,
		Limit:          g.limit,
		Entries:        entries,
		TotalPlayCount: total,
	}, nil
}

// Generate builds the report and writes it to w. Nothing is written if any
// catalog read fails.
func (g *Generator) Generate(ctx context.Context, cat catalog.Catalog, w io.Writer) error {
	r, err := g.Build(ctx, cat)
	if err != nil {
		return err
	}
	return Render(w, r)
}
