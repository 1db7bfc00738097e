// Package match ranks students against job descriptions and recommends
// alumni to students.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/alumni-match-api/internal/embedding"
	"github.com/aanand-mishra/alumni-match-api/internal/types"
)

// StudentStore is the part of storage.Storage the ATS ranking reads.
type StudentStore interface {
	StudentsWithResume(ctx context.Context) ([]types.User, error)
	StudentWithResume(ctx context.Context, id string) (types.User, error)
}

// ResumeReader returns the plain text of a résumé, or "" when it cannot
// be read.
type ResumeReader interface {
	Text(ctx context.Context, url string) string
}

// ATS scores résumés against a job description by sentence-embedding
// cosine similarity.
type ATS struct {
	store       StudentStore
	resumes     ResumeReader
	embedder    embedding.Embedder
	concurrency int
}

// NewATS builds an ATS that downloads at most concurrency résumés at once.
func NewATS(store StudentStore, resumes ResumeReader, embedder embedding.Embedder, concurrency int) *ATS {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ATS{
		store:       store,
		resumes:     resumes,
		embedder:    embedder,
		concurrency: concurrency,
	}
}

// MatchAll ranks every student with a résumé against jobDesc, best first.
func (a *ATS) MatchAll(ctx context.Context, jobDesc string) ([]types.MatchResult, error) {
	start := time.Now()

	students, err := a.store.StudentsWithResume(ctx)
	if err != nil {
		return nil, fmt.Errorf("match.MatchAll: load students: %w", err)
	}
	if len(students) == 0 {
		return []types.MatchResult{}, nil
	}

	texts, err := a.fetchAll(ctx, students)
	if err != nil {
		return nil, fmt.Errorf("match.MatchAll: fetch resumes: %w", err)
	}

	scores, err := a.score(ctx, jobDesc, texts)
	if err != nil {
		return nil, fmt.Errorf("match.MatchAll: %w", err)
	}

	// Rank on the raw similarity so scores that round equal keep their
	// true order.
	order := make([]int, len(students))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	results := make([]types.MatchResult, len(students))
	for i, idx := range order {
		results[i] = matchResult(students[idx], scores[idx])
	}

	slog.Debug("ats ranking complete",
		slog.Int("students", len(students)),
		slog.Duration("took", time.Since(start)))

	return results, nil
}

// MatchStudent scores a single student's résumé against jobDesc.
// storage.ErrInvalidID and storage.ErrNotFound are passed through wrapped.
func (a *ATS) MatchStudent(ctx context.Context, studentID, jobDesc string) (types.MatchResult, error) {
	student, err := a.store.StudentWithResume(ctx, studentID)
	if err != nil {
		return types.MatchResult{}, fmt.Errorf("match.MatchStudent: %w", err)
	}

	text := a.resumes.Text(ctx, student.ResumeURL())

	scores, err := a.score(ctx, jobDesc, []string{text})
	if err != nil {
		return types.MatchResult{}, fmt.Errorf("match.MatchStudent: %w", err)
	}

	return matchResult(student, scores[0]), nil
}

// fetchAll downloads every résumé with bounded concurrency. Texts are
// returned in student order.
func (a *ATS) fetchAll(ctx context.Context, students []types.User) ([]string, error) {
	texts := make([]string, len(students))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, s := range students {
		url := s.ResumeURL()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts[i] = a.resumes.Text(gctx, url)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return texts, nil
}

// score embeds jobDesc followed by every non-empty text in one batch and
// returns the cosine similarity of each text to it. Empty texts score 0
// without being sent.
func (a *ATS) score(ctx context.Context, jobDesc string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))

	inputs := make([]string, 0, len(texts)+1)
	inputs = append(inputs, jobDesc)
	positions := make([]int, 0, len(texts))
	for i, t := range texts {
		if t == "" {
			continue
		}
		inputs = append(inputs, t)
		positions = append(positions, i)
	}
	if len(positions) == 0 {
		return scores, nil
	}

	vecs, err := a.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(inputs) {
		return nil, fmt.Errorf("embed: %w: got %d vectors for %d inputs", embedding.ErrUnavailable, len(vecs), len(inputs))
	}

	job := vecs[0]
	for k, pos := range positions {
		scores[pos] = embedding.CosineSimilarity(job, vecs[k+1])
	}
	return scores, nil
}

// matchResult reports similarity as a percentage rounded to 2 places.
func matchResult(u types.User, similarity float64) types.MatchResult {
	return types.MatchResult{
		Name:     u.FullName(),
		Email:    u.Email,
		Skills:   types.NonNil(u.Profile.Skills),
		ATSScore: round(similarity*100, 2),
	}
}

func round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}
