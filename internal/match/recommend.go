package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aanand-mishra/alumni-match-api/internal/config"
	"github.com/aanand-mishra/alumni-match-api/internal/tfidf"
	"github.com/aanand-mishra/alumni-match-api/internal/types"
)

// ProfileStore is the part of storage.Storage the recommender reads.
type ProfileStore interface {
	Student(ctx context.Context, id string) (types.User, error)
	ApprovedAlumni(ctx context.Context) ([]types.User, error)
}

// Recommender suggests alumni whose skills and interests overlap a
// student's, using TF-IDF cosine similarity.
type Recommender struct {
	store     ProfileStore
	threshold float64
	limit     int
}

func NewRecommender(store ProfileStore, cfg config.Recommend) *Recommender {
	return &Recommender{
		store:     store,
		threshold: cfg.Threshold,
		limit:     cfg.Limit,
	}
}

// Recommend returns alumni scoring strictly above the threshold, split by
// whether they share the student's college, best first and at most limit
// per group.
func (r *Recommender) Recommend(ctx context.Context, studentID string) (types.Recommendations, error) {
	student, err := r.store.Student(ctx, studentID)
	if err != nil {
		return types.Recommendations{}, fmt.Errorf("match.Recommend: %w", err)
	}

	studentDoc := profileDocument(student)
	if studentDoc == "" {
		return types.EmptyRecommendations(), nil
	}

	alumni, err := r.store.ApprovedAlumni(ctx)
	if err != nil {
		return types.Recommendations{}, fmt.Errorf("match.Recommend: load alumni: %w", err)
	}

	docs := []string{studentDoc}
	candidates := make([]types.User, 0, len(alumni))
	for _, a := range alumni {
		doc := profileDocument(a)
		if doc == "" {
			continue
		}
		docs = append(docs, doc)
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return types.EmptyRecommendations(), nil
	}

	vecs := tfidf.FitTransform(docs)

	out := types.EmptyRecommendations()
	for i, a := range candidates {
		score := tfidf.Cosine(vecs[0], vecs[i+1])
		if score <= r.threshold {
			continue
		}
		rec := types.AlumniRecommendation{
			ID:          a.ID,
			Name:        a.FullName(),
			CollegeCode: a.CollegeCode,
			Skills:      types.NonNil(a.Profile.Skills),
			Interests:   types.NonNil(a.Profile.Interests),
			Score:       round(score, 3),
		}
		if a.CollegeCode == student.CollegeCode {
			out.SameCollege = append(out.SameCollege, rec)
		} else {
			out.OtherCollege = append(out.OtherCollege, rec)
		}
	}

	out.SameCollege = r.top(out.SameCollege)
	out.OtherCollege = r.top(out.OtherCollege)

	slog.Debug("recommendations computed",
		slog.String("student_id", studentID),
		slog.Int("candidates", len(candidates)),
		slog.Int("same_college", len(out.SameCollege)),
		slog.Int("other_college", len(out.OtherCollege)))

	return out, nil
}

func (r *Recommender) top(recs []types.AlumniRecommendation) []types.AlumniRecommendation {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if len(recs) > r.limit {
		recs = recs[:r.limit]
	}
	return recs
}

// profileDocument is the text a profile is compared on: skills then
// interests, space separated.
func profileDocument(u types.User) string {
	parts := make([]string, 0, len(u.Profile.Skills)+len(u.Profile.Interests))
	parts = append(parts, u.Profile.Skills...)
	parts = append(parts, u.Profile.Interests...)
	return strings.TrimSpace(strings.Join(parts, " "))
}
