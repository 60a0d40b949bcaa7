// Package linkstore persists the edit links the remote site issues
// after a first successful claim, keyed by (week key, email). The week
// key is the trailing path segment of the week's public link.
package linkstore

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"path"
	"time"

	_ "embed"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("trainslot.lib.linkstore")

//go:embed schema.sql
var Schema string

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) (Store, error) {
	_, err := database.Exec(Schema)
	if err != nil {
		return Store{}, err
	}
	return Store{db: database}, nil
}

// WeekKey derives the record namespace from a week link: its trailing
// path segment.
func WeekKey(weekLink string) string {
	u, err := url.Parse(weekLink)
	if err != nil {
		return path.Base(weekLink)
	}
	return path.Base(u.Path)
}

// Get returns the stored edit link for (weekKey, email), or ok=false
// when there is no record. A broken store reads as empty rather than
// failing the surrounding scrape.
func (s Store) Get(ctx context.Context, weekKey, email string) (link string, ok bool, err error) {
	ctx, span := tracer.Start(ctx, "linkstore:Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("week_key", weekKey),
		attribute.String("email", email),
	)

	row := s.db.QueryRowContext(
		ctx,
		`SELECT edit_link FROM edit_link WHERE week_key = ? AND email = ?`,
		weekKey, email,
	)
	err = row.Scan(&link)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read edit link record")
		slog.WarnContext(ctx, "edit link store unreadable, treating as empty",
			"week_key", weekKey, "err", err)
		return "", false, nil
	}
	return link, true, nil
}

// Put records an edit link for (weekKey, email). The upsert runs in an
// immediate transaction so read-modify-write cycles for one key never
// interleave.
func (s Store) Put(ctx context.Context, weekKey, email, editLink string) error {
	ctx, span := tracer.Start(ctx, "linkstore:Put")
	defer span.End()
	span.SetAttributes(
		attribute.String("week_key", weekKey),
		attribute.String("email", email),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO edit_link (week_key, email, edit_link, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (week_key, email) DO UPDATE SET edit_link = excluded.edit_link`,
		weekKey, email, editLink, time.Now().Unix(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upsert edit link record")
		return err
	}

	return tx.Commit()
}
