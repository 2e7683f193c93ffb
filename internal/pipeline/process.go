// Package pipeline turns a snapshot of raw forum records into the processed
// corpus: normalized and vocabulary-filtered text, anonymized identifiers and
// one document-term matrix per corpus.
package pipeline

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/forum"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/anonymizer"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/artifact"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/dtm"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/normalizer"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/vocabulary"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/store"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/tracing"
)

// Artifact names of the three matrices.
const (
	SubmissionMatrix = "sub_dtm"
	CommentMatrix    = "com_dtm"
	UserMatrix       = "user_dtm"
)

var matrixNames = map[string]string{
	config.MatrixSubmissions: SubmissionMatrix,
	config.MatrixComments:    CommentMatrix,
	config.MatrixUsers:       UserMatrix,
}

// Snapshot is the raw input of one run. Submissions and Comments are in
// (created_utc, id) order; UserTexts is sorted by author.
type Snapshot struct {
	Submissions []forum.Submission
	Comments    []forum.Comment
	UserTexts   []store.AuthorText
}

// Options are the processing parameters of a run.
type Options struct {
	Cutoff    int
	Stopwords vocabulary.Stopwords
	Matrices  []string
}

// OptionsFromConfig resolves the stopword list named in cfg.
func OptionsFromConfig(cfg config.PipelineConfig) (Options, error) {
	stop, err := vocabulary.LoadStopwords(cfg.Stopwords, cfg.StopwordsFile, cfg.ExtraStopwords)
	if err != nil {
		return Options{}, err
	}
	return Options{Cutoff: cfg.WordCountCutoff, Stopwords: stop, Matrices: cfg.Matrices}, nil
}

// Result is everything a run persists.
type Result struct {
	Vocabulary *vocabulary.Vocabulary
	Matrices   []artifact.Named
	Rows       store.ProcessedRows
	Documents  map[string]int
}

// Process runs every in-memory stage on snap. It does no I/O.
func Process(snap Snapshot, opts Options) (*Result, error) {
	return process(context.Background(), snap, opts)
}

func process(ctx context.Context, snap Snapshot, opts Options) (*Result, error) {
	_, span := tracing.StartChildSpan(ctx, "validate")
	err := forum.ValidateAll(snap.Submissions, snap.Comments)
	span.End()
	if err != nil {
		return nil, err
	}

	_, span = tracing.StartChildSpan(ctx, "normalize")
	subTexts := make([]string, len(snap.Submissions))
	for i, s := range snap.Submissions {
		subTexts[i] = normalizer.Normalize(s.Text)
	}
	comTexts := make([]string, len(snap.Comments))
	for i, c := range snap.Comments {
		comTexts[i] = normalizer.Normalize(c.Text)
	}
	userTexts := make([]string, len(snap.UserTexts))
	for i, u := range snap.UserTexts {
		userTexts[i] = normalizer.Normalize(u.Text)
	}
	span.End()

	_, span = tracing.StartChildSpan(ctx, "vocabulary")
	corpus := make([]string, 0, len(subTexts)+len(comTexts))
	corpus = append(corpus, subTexts...)
	corpus = append(corpus, comTexts...)
	vocab := vocabulary.Build(corpus, opts.Cutoff, opts.Stopwords)
	span.SetAttr("terms", vocab.Len())
	span.End()

	_, span = tracing.StartChildSpan(ctx, "matrices")
	docsByMatrix := map[string][]string{
		SubmissionMatrix: subTexts,
		CommentMatrix:    comTexts,
		UserMatrix:       userTexts,
	}
	matrices := make([]artifact.Named, 0, len(matrixNames))
	for _, name := range selectedMatrices(opts.Matrices) {
		m, err := dtm.Build(docsByMatrix[name], vocab)
		if err != nil {
			span.End()
			return nil, fmt.Errorf("building %s: %w", name, err)
		}
		span.SetAttr(name+"_nnz", m.NNZ())
		matrices = append(matrices, artifact.Named{Name: name, Matrix: m})
	}
	span.End()

	_, span = tracing.StartChildSpan(ctx, "filter")
	subTexts = vocabulary.FilterAll(subTexts, vocab)
	comTexts = vocabulary.FilterAll(comTexts, vocab)
	userTexts = vocabulary.FilterAll(userTexts, vocab)
	span.End()

	_, span = tracing.StartChildSpan(ctx, "anonymize")
	rows, err := anonymize(snap, subTexts, comTexts, userTexts)
	span.End()
	if err != nil {
		return nil, err
	}
	rows.Vocabulary = vocab.Terms()

	return &Result{
		Vocabulary: vocab,
		Matrices:   matrices,
		Rows:       rows,
		Documents: map[string]int{
			config.MatrixSubmissions: len(snap.Submissions),
			config.MatrixComments:    len(snap.Comments),
			config.MatrixUsers:       len(snap.UserTexts),
		},
	}, nil
}

// selectedMatrices maps configured corpus names to matrix names in a fixed
// order, ignoring repeats.
func selectedMatrices(configured []string) []string {
	want := make(map[string]bool, len(configured))
	for _, c := range configured {
		want[c] = true
	}
	out := make([]string, 0, len(want))
	for _, c := range []string{config.MatrixSubmissions, config.MatrixComments, config.MatrixUsers} {
		if want[c] {
			out = append(out, matrixNames[c])
		}
	}
	return out
}

func anonymize(snap Snapshot, subTexts, comTexts, userTexts []string) (store.ProcessedRows, error) {
	subAuthors := make([]string, len(snap.Submissions))
	subIDs := make([]string, len(snap.Submissions))
	for i, s := range snap.Submissions {
		subAuthors[i] = s.Author
		subIDs[i] = s.ID
	}
	comAuthors := make([]string, len(snap.Comments))
	comSubIDs := make([]string, len(snap.Comments))
	for i, c := range snap.Comments {
		comAuthors[i] = c.Author
		comSubIDs[i] = c.SubmissionID
	}
	userAuthors := make([]string, len(snap.UserTexts))
	for i, u := range snap.UserTexts {
		userAuthors[i] = u.Author
	}

	authors, err := anonymizer.NewIndex(anonymizer.CanonicalOrder(subAuthors, comAuthors))
	if err != nil {
		return store.ProcessedRows{}, fmt.Errorf("building author index: %w", err)
	}
	submissions, err := anonymizer.NewIndex(anonymizer.CanonicalOrder(subIDs))
	if err != nil {
		return store.ProcessedRows{}, fmt.Errorf("building submission index: %w", err)
	}

	subAuthorCodes, err := authors.Encode(subAuthors)
	if err != nil {
		return store.ProcessedRows{}, fmt.Errorf("encoding submission authors: %w", err)
	}
	subCodes, err := submissions.Encode(subIDs)
	if err != nil {
		return store.ProcessedRows{}, fmt.Errorf("encoding submission ids: %w", err)
	}
	comAuthorCodes, err := authors.Encode(comAuthors)
	if err != nil {
		return store.ProcessedRows{}, fmt.Errorf("encoding comment authors: %w", err)
	}
	comSubCodes, err := submissions.Encode(comSubIDs)
	if err != nil {
		return store.ProcessedRows{}, fmt.Errorf("encoding comment submission ids: %w", err)
	}
	userCodes, err := authors.Encode(userAuthors)
	if err != nil {
		return store.ProcessedRows{}, fmt.Errorf("encoding user authors: %w", err)
	}

	rows := store.ProcessedRows{
		Submissions: make([]store.ProcessedSubmission, len(snap.Submissions)),
		Comments:    make([]store.ProcessedComment, len(snap.Comments)),
		Users:       make([]store.UserText, len(snap.UserTexts)),
	}
	for i, s := range snap.Submissions {
		rows.Submissions[i] = store.ProcessedSubmission{
			SubmissionIndex: subCodes[i],
			Title:           s.Title,
			AuthorIndex:     subAuthorCodes[i],
			CreatedUTC:      s.CreatedUTC,
			Score:           s.Score,
			NumComments:     s.NumComments,
			Text:            subTexts[i],
		}
	}
	for i, c := range snap.Comments {
		parent := c.ParentID
		if parent == c.SubmissionID {
			parent = ""
		}
		rows.Comments[i] = store.ProcessedComment{
			CommentID:       c.ID,
			AuthorIndex:     comAuthorCodes[i],
			CreatedUTC:      c.CreatedUTC,
			Score:           c.Score,
			NumReplies:      c.NumReplies,
			SubmissionIndex: comSubCodes[i],
			ParentID:        parent,
			Text:            comTexts[i],
		}
	}
	for i := range snap.UserTexts {
		rows.Users[i] = store.UserText{UserIndex: userCodes[i], Text: userTexts[i]}
	}
	return rows, nil
}
