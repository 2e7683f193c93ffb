package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/forum"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/logger"
)

var (
	submissionColumns = []string{"id", "title", "author", "created_utc", "score", "num_comments", "text"}
	commentColumns    = []string{"id", "author", "created_utc", "score", "num_replies", "submission_id", "parent_id", "text"}
)

// selectable lists the raw columns SelectColumn accepts. Table and column
// names cannot be bound as parameters, so anything else is rejected.
var selectable = map[string][]string{
	"Submissions": submissionColumns,
	"Comments":    commentColumns,
}

// AuthorText is one author's comments concatenated in chronological order.
type AuthorText struct {
	Author string
	Text   string
}

// SaveScrape inserts a scrape's submissions and comments in a single
// transaction. Records whose id already exists are left untouched. It returns
// the number of new rows per table.
func (d *DB) SaveScrape(ctx context.Context, subs []forum.Submission, comments []forum.Comment) (int, int, error) {
	var nSubs, nComments int
	err := d.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		if nSubs, err = d.insertSubmissions(ctx, tx, subs); err != nil {
			return err
		}
		nComments, err = d.insertComments(ctx, tx, comments)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	logger.FromContext(ctx, d.logger).Info("scrape persisted",
		"submissions", len(subs),
		"new_submissions", nSubs,
		"comments", len(comments),
		"new_comments", nComments,
	)
	return nSubs, nComments, nil
}

// InsertSubmissions inserts submissions in one transaction.
func (d *DB) InsertSubmissions(ctx context.Context, subs []forum.Submission) (int, error) {
	var n int
	err := d.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = d.insertSubmissions(ctx, tx, subs)
		return err
	})
	return n, err
}

// InsertComments inserts comments in one transaction.
func (d *DB) InsertComments(ctx context.Context, comments []forum.Comment) (int, error) {
	var n int
	err := d.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = d.insertComments(ctx, tx, comments)
		return err
	})
	return n, err
}

func (d *DB) insertSubmissions(ctx context.Context, tx *sql.Tx, subs []forum.Submission) (int, error) {
	if len(subs) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, d.insertSQL("Submissions", submissionColumns, "ON CONFLICT (id) DO NOTHING"))
	if err != nil {
		return 0, fmt.Errorf("preparing submission insert: %w", err)
	}
	defer stmt.Close()
	inserted := 0
	for _, s := range subs {
		res, err := stmt.ExecContext(ctx, s.ID, s.Title, s.Author, s.CreatedUTC, s.Score, s.NumComments, s.Text)
		if err != nil {
			return 0, fmt.Errorf("inserting submission %s: %w", s.ID, err)
		}
		inserted += rowsAffected(res)
	}
	return inserted, nil
}

func (d *DB) insertComments(ctx context.Context, tx *sql.Tx, comments []forum.Comment) (int, error) {
	if len(comments) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, d.insertSQL("Comments", commentColumns, "ON CONFLICT (id) DO NOTHING"))
	if err != nil {
		return 0, fmt.Errorf("preparing comment insert: %w", err)
	}
	defer stmt.Close()
	inserted := 0
	for _, c := range comments {
		res, err := stmt.ExecContext(ctx, c.ID, c.Author, c.CreatedUTC, c.Score, c.NumReplies, c.SubmissionID, c.ParentID, c.Text)
		if err != nil {
			return 0, fmt.Errorf("inserting comment %s: %w", c.ID, err)
		}
		inserted += rowsAffected(res)
	}
	return inserted, nil
}

func rowsAffected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

// SelectColumn returns one raw column as strings in (created_utc, id) order.
// NULL values come back as "".
func (d *DB) SelectColumn(ctx context.Context, table, column string) ([]string, error) {
	cols, ok := selectable[table]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "unknown table %q", table)
	}
	found := false
	for _, c := range cols {
		if c == column {
			found = true
			break
		}
	}
	if !found {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "unknown column %s.%s", table, column)
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY created_utc, id", column, table))
	if err != nil {
		return nil, fmt.Errorf("selecting %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s.%s: %w", table, column, err)
		}
		out = append(out, v.String)
	}
	return out, rows.Err()
}

// LoadSubmissions returns every raw submission ordered by (created_utc, id).
func (d *DB) LoadSubmissions(ctx context.Context) ([]forum.Submission, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, title, author, created_utc, score, num_comments, text
		FROM Submissions ORDER BY created_utc, id`)
	if err != nil {
		return nil, fmt.Errorf("loading submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]forum.Submission, 0)
	for rows.Next() {
		var (
			s           forum.Submission
			title, text sql.NullString
		)
		if err := rows.Scan(&s.ID, &title, &s.Author, &s.CreatedUTC, &s.Score, &s.NumComments, &text); err != nil {
			return nil, fmt.Errorf("scanning submission row: %w", err)
		}
		s.Title = title.String
		s.Text = text.String
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// LoadComments returns every raw comment ordered by (created_utc, id).
func (d *DB) LoadComments(ctx context.Context) ([]forum.Comment, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, author, created_utc, score, num_replies, submission_id, parent_id, text
		FROM Comments ORDER BY created_utc, id`)
	if err != nil {
		return nil, fmt.Errorf("loading comments: %w", err)
	}
	defer rows.Close()

	comments := make([]forum.Comment, 0)
	for rows.Next() {
		var (
			c    forum.Comment
			text sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Author, &c.CreatedUTC, &c.Score, &c.NumReplies, &c.SubmissionID, &c.ParentID, &text); err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		c.Text = text.String
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// GroupConcat joins each author's comment texts with sep. Authors are sorted
// bytewise and texts keep (created_utc, id) order, so the result does not
// depend on the database collation.
func (d *DB) GroupConcat(ctx context.Context, sep string) ([]AuthorText, error) {
	comments, err := d.LoadComments(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByAuthor(comments, sep), nil
}

// GroupByAuthor is the in-memory half of GroupConcat. comments must already
// be in chronological order.
func GroupByAuthor(comments []forum.Comment, sep string) []AuthorText {
	texts := make(map[string][]string)
	for _, c := range comments {
		texts[c.Author] = append(texts[c.Author], c.Text)
	}
	authors := make([]string, 0, len(texts))
	for a := range texts {
		authors = append(authors, a)
	}
	sort.Strings(authors)

	out := make([]AuthorText, len(authors))
	for i, a := range authors {
		out[i] = AuthorText{Author: a, Text: strings.Join(texts[a], sep)}
	}
	return out
}
