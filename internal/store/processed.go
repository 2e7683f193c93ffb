package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/logger"
)

// ProcessedSubmission is a submission with its author and id replaced by
// integer codes and its text reduced to vocabulary terms.
type ProcessedSubmission struct {
	SubmissionIndex int
	Title           string
	AuthorIndex     int
	CreatedUTC      int64
	Score           int
	NumComments     int
	Text            string
}

// ProcessedComment keeps the raw comment id and, for replies, the raw parent
// comment id. ParentID is empty for top-level comments so no raw submission
// id reaches the processed store; SubmissionIndex names their parent.
type ProcessedComment struct {
	CommentID       string
	AuthorIndex     int
	CreatedUTC      int64
	Score           int
	NumReplies      int
	SubmissionIndex int
	ParentID        string
	Text            string
}

// UserText is one author's filtered comment corpus.
type UserText struct {
	UserIndex int
	Text      string
}

// ProcessedRows is everything a pipeline run writes to the processed store.
type ProcessedRows struct {
	Submissions []ProcessedSubmission
	Comments    []ProcessedComment
	Vocabulary  []string
	Users       []UserText
}

// ReplaceProcessed swaps the processed tables' contents for rows in one
// transaction. beforeCommit, when non-nil, runs after all rows are written
// and before the commit; an error from it rolls everything back.
func (d *DB) ReplaceProcessed(ctx context.Context, rows ProcessedRows, beforeCommit func() error) error {
	err := d.InTx(ctx, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, []string{
			`DELETE FROM Submissions`,
			`DELETE FROM Comments`,
			`DELETE FROM Vocab`,
			`DELETE FROM "User"`,
		}); err != nil {
			return err
		}
		if err := d.insertProcessedSubmissions(ctx, tx, rows.Submissions); err != nil {
			return err
		}
		if err := d.insertProcessedComments(ctx, tx, rows.Comments); err != nil {
			return err
		}
		if err := d.insertVocabulary(ctx, tx, rows.Vocabulary); err != nil {
			return err
		}
		if err := d.insertUsers(ctx, tx, rows.Users); err != nil {
			return err
		}
		if beforeCommit != nil {
			return beforeCommit()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing processed tables: %w", err)
	}
	logger.FromContext(ctx, d.logger).Info("processed tables replaced",
		"submissions", len(rows.Submissions),
		"comments", len(rows.Comments),
		"vocabulary", len(rows.Vocabulary),
		"users", len(rows.Users),
	)
	return nil
}

func (d *DB) insertProcessedSubmissions(ctx context.Context, tx *sql.Tx, subs []ProcessedSubmission) error {
	stmt, err := tx.PrepareContext(ctx, d.insertSQL("Submissions",
		[]string{"submission_index", "title", "author_index", "created_utc", "score", "num_comments", "text"}, ""))
	if err != nil {
		return fmt.Errorf("preparing processed submission insert: %w", err)
	}
	defer stmt.Close()
	for _, s := range subs {
		if _, err := stmt.ExecContext(ctx, s.SubmissionIndex, s.Title, s.AuthorIndex, s.CreatedUTC, s.Score, s.NumComments, s.Text); err != nil {
			return fmt.Errorf("inserting processed submission %d: %w", s.SubmissionIndex, err)
		}
	}
	return nil
}

func (d *DB) insertProcessedComments(ctx context.Context, tx *sql.Tx, comments []ProcessedComment) error {
	stmt, err := tx.PrepareContext(ctx, d.insertSQL("Comments",
		[]string{"comment_id", "author_index", "created_utc", "score", "num_replies", "submission_index", "parent_id", "text"}, ""))
	if err != nil {
		return fmt.Errorf("preparing processed comment insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range comments {
		if _, err := stmt.ExecContext(ctx, c.CommentID, c.AuthorIndex, c.CreatedUTC, c.Score, c.NumReplies, c.SubmissionIndex, c.ParentID, c.Text); err != nil {
			return fmt.Errorf("inserting processed comment %s: %w", c.CommentID, err)
		}
	}
	return nil
}

func (d *DB) insertVocabulary(ctx context.Context, tx *sql.Tx, terms []string) error {
	stmt, err := tx.PrepareContext(ctx, d.insertSQL("Vocab", []string{"term_index", "term"}, ""))
	if err != nil {
		return fmt.Errorf("preparing vocab insert: %w", err)
	}
	defer stmt.Close()
	for i, term := range terms {
		if _, err := stmt.ExecContext(ctx, i, term); err != nil {
			return fmt.Errorf("inserting term %q: %w", term, err)
		}
	}
	return nil
}

func (d *DB) insertUsers(ctx context.Context, tx *sql.Tx, users []UserText) error {
	stmt, err := tx.PrepareContext(ctx, d.insertSQL(`"User"`, []string{"user_index", "text"}, ""))
	if err != nil {
		return fmt.Errorf("preparing user insert: %w", err)
	}
	defer stmt.Close()
	for _, u := range users {
		if _, err := stmt.ExecContext(ctx, u.UserIndex, u.Text); err != nil {
			return fmt.Errorf("inserting user %d: %w", u.UserIndex, err)
		}
	}
	return nil
}

// LoadVocabulary returns the stored terms ordered by term_index.
func (d *DB) LoadVocabulary(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT term FROM Vocab ORDER BY term_index`)
	if err != nil {
		return nil, fmt.Errorf("loading vocabulary: %w", err)
	}
	defer rows.Close()
	terms := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// LoadProcessedSubmissions returns the processed submissions by index.
func (d *DB) LoadProcessedSubmissions(ctx context.Context) ([]ProcessedSubmission, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT submission_index, title, author_index, created_utc, score, num_comments, text
		FROM Submissions ORDER BY submission_index`)
	if err != nil {
		return nil, fmt.Errorf("loading processed submissions: %w", err)
	}
	defer rows.Close()
	out := make([]ProcessedSubmission, 0)
	for rows.Next() {
		var (
			s     ProcessedSubmission
			title sql.NullString
		)
		if err := rows.Scan(&s.SubmissionIndex, &title, &s.AuthorIndex, &s.CreatedUTC, &s.Score, &s.NumComments, &s.Text); err != nil {
			return nil, fmt.Errorf("scanning processed submission: %w", err)
		}
		s.Title = title.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountRows returns the row count of each processed table.
func (d *DB) CountRows(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 4)
	tables := [][2]string{
		{"Submissions", "Submissions"},
		{"Comments", "Comments"},
		{"Vocab", "Vocab"},
		{"User", `"User"`},
	}
	for _, t := range tables {
		var n int
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t[1]).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", t[0], err)
		}
		counts[t[0]] = n
	}
	return counts, nil
}
