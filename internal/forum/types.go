// Package forum defines the raw records scraped from a discussion forum and the
// Kafka event payloads exchanged between the scraper and the processor.
package forum

import "time"

// Submission is a top-level post. Records are immutable once fetched.
type Submission struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	CreatedUTC  int64  `json:"created_utc"`
	Score       int    `json:"score"`
	NumComments int    `json:"num_comments"`
	Text        string `json:"text"`
}

// Comment is one reply in a submission's comment tree, flattened. ParentID is
// either another comment id or the submission id for top-level comments.
type Comment struct {
	ID           string `json:"id"`
	Author       string `json:"author"`
	CreatedUTC   int64  `json:"created_utc"`
	Score        int    `json:"score"`
	NumReplies   int    `json:"num_replies"`
	SubmissionID string `json:"submission_id"`
	ParentID     string `json:"parent_id"`
	Text         string `json:"text"`
}

// CommentNode is a comment as fetched, still attached to its replies. An empty
// Author marks a deleted comment.
type CommentNode struct {
	ID           string
	Author       string
	CreatedUTC   int64
	Score        int
	SubmissionID string
	ParentID     string
	Body         string
	Children     []*CommentNode
}

// Deleted reports whether the comment's author is gone.
func (n *CommentNode) Deleted() bool {
	return n.Author == ""
}

// Comment converts the node into a flat record.
func (n *CommentNode) Comment() Comment {
	return Comment{
		ID:           n.ID,
		Author:       n.Author,
		CreatedUTC:   n.CreatedUTC,
		Score:        n.Score,
		NumReplies:   len(n.Children),
		SubmissionID: n.SubmissionID,
		ParentID:     n.ParentID,
		Text:         n.Body,
	}
}

// ScrapeCompleteEvent is published after a scrape has been committed to the
// raw store.
type ScrapeCompleteEvent struct {
	ScrapeID    string    `json:"scrape_id"`
	Forum       string    `json:"forum"`
	Submissions int       `json:"submissions"`
	Comments    int       `json:"comments"`
	FinishedAt  time.Time `json:"finished_at"`
}

// CorpusProcessedEvent is published after a pipeline run has been committed.
type CorpusProcessedEvent struct {
	RunID          string         `json:"run_id"`
	VocabularySize int            `json:"vocabulary_size"`
	Documents      map[string]int `json:"documents"`
	Matrices       []string       `json:"matrices"`
	ArtifactPath   string         `json:"artifact_path"`
	FinishedAt     time.Time      `json:"finished_at"`
}
