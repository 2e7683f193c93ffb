package reddit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/forum"
)

const deletedAuthor = "[deleted]"

type listing struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

type listingData struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type submissionData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Selftext    string  `json:"selftext"`
}

// commentData.Replies is either "" or a listing.
type commentData struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	CreatedUTC float64         `json:"created_utc"`
	Score      int             `json:"score"`
	Body       string          `json:"body"`
	ParentID   string          `json:"parent_id"`
	LinkID     string          `json:"link_id"`
	Replies    json.RawMessage `json:"replies"`
}

func (s submissionData) submission() forum.Submission {
	return forum.Submission{
		ID:          s.ID,
		Title:       s.Title,
		Author:      normalizeAuthor(s.Author),
		CreatedUTC:  int64(s.CreatedUTC),
		Score:       s.Score,
		NumComments: s.NumComments,
		Text:        s.Selftext,
	}
}

func normalizeAuthor(a string) string {
	if a == deletedAuthor {
		return ""
	}
	return a
}

// stripKind turns a fullname such as "t1_abc" into "abc".
func stripKind(fullname string) string {
	if i := strings.LastIndexByte(fullname, '_'); i >= 0 {
		return fullname[i+1:]
	}
	return fullname
}

func decodeSubmissions(body []byte) ([]forum.Submission, string, error) {
	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, "", fmt.Errorf("decoding submission listing: %w", err)
	}
	subs := make([]forum.Submission, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var s submissionData
		if err := json.Unmarshal(child.Data, &s); err != nil {
			return nil, "", fmt.Errorf("decoding submission: %w", err)
		}
		subs = append(subs, s.submission())
	}
	return subs, l.Data.After, nil
}

// decodeCommentTree converts the second listing of a comments response into
// CommentNodes. Nesting is walked with an explicit stack so deep threads
// cannot exhaust the goroutine stack.
func decodeCommentTree(body []byte, submissionID string) ([]*forum.CommentNode, error) {
	var pages []listing
	if err := json.Unmarshal(body, &pages); err != nil {
		return nil, fmt.Errorf("decoding comment response: %w", err)
	}
	if len(pages) < 2 {
		return nil, fmt.Errorf("comment response has %d listings, want 2", len(pages))
	}

	type frame struct {
		children []thing
		attach   func(*forum.CommentNode)
	}
	roots := make([]*forum.CommentNode, 0, len(pages[1].Data.Children))
	stack := []frame{{
		children: pages[1].Data.Children,
		attach:   func(n *forum.CommentNode) { roots = append(roots, n) },
	}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range f.children {
			if child.Kind != "t1" {
				continue
			}
			var c commentData
			if err := json.Unmarshal(child.Data, &c); err != nil {
				return nil, fmt.Errorf("decoding comment: %w", err)
			}
			node := &forum.CommentNode{
				ID:           c.ID,
				Author:       normalizeAuthor(c.Author),
				CreatedUTC:   int64(c.CreatedUTC),
				Score:        c.Score,
				SubmissionID: submissionID,
				ParentID:     stripKind(c.ParentID),
				Body:         c.Body,
			}
			f.attach(node)

			replies, err := decodeReplies(c.Replies)
			if err != nil {
				return nil, fmt.Errorf("decoding replies of %s: %w", c.ID, err)
			}
			if len(replies) > 0 {
				parent := node
				stack = append(stack, frame{
					children: replies,
					attach:   func(n *forum.CommentNode) { parent.Children = append(parent.Children, n) },
				})
			}
		}
	}
	return roots, nil
}

func decodeReplies(raw json.RawMessage) ([]thing, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var l listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return l.Data.Children, nil
}
