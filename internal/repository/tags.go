package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// dedupeTags trims names, drops empties and removes duplicates while keeping
// first-seen order.
func dedupeTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// replaceTags syncs an owner's tag set inside the caller's transaction: tags
// are created on first use, stale links removed, new links added. Tag rows
// themselves are never deleted.
func replaceTags(ctx context.Context, tx pgx.Tx, joinTable, ownerColumn string, ownerID int64, names []string) error {
	if _, err := tx.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, joinTable, ownerColumn),
		ownerID,
	); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}

	for _, name := range names {
		var tagID int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO tags (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, name).Scan(&tagID); err != nil {
			return fmt.Errorf("upsert tag %q: %w", name, err)
		}

		if _, err := tx.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (%s, tag_id) VALUES ($1, $2)`, joinTable, ownerColumn),
			ownerID, tagID,
		); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}
