package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/alumni-match-api/internal/config"
	"github.com/aanand-mishra/alumni-match-api/internal/embedding"
	"github.com/aanand-mishra/alumni-match-api/internal/storage"
	"github.com/aanand-mishra/alumni-match-api/internal/types"
)

type fakeStore struct {
	students []types.User
	alumni   []types.User
	err      error

	alumniCalls int
}

func (f *fakeStore) StudentsWithResume(context.Context) ([]types.User, error) {
	return f.students, f.err
}

func (f *fakeStore) StudentWithResume(ctx context.Context, id string) (types.User, error) {
	return f.Student(ctx, id)
}

func (f *fakeStore) Student(_ context.Context, id string) (types.User, error) {
	if f.err != nil {
		return types.User{}, f.err
	}
	if err := storage.ValidateID(id); err != nil {
		return types.User{}, err
	}
	for _, s := range f.students {
		if s.ID == id {
			return s, nil
		}
	}
	return types.User{}, storage.ErrNotFound
}

func (f *fakeStore) ApprovedAlumni(context.Context) ([]types.User, error) {
	f.alumniCalls++
	return f.alumni, nil
}

type fakeResumes struct {
	texts map[string]string
	delay time.Duration

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (f *fakeResumes) Text(_ context.Context, url string) string {
	f.mu.Lock()
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return f.texts[url]
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error

	calls  atomic.Int32
	inputs []string
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	f.inputs = texts
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func oid(n int) string { return fmt.Sprintf("%024x", n) }

func student(n int, first, resume string, skills ...string) types.User {
	return types.User{
		ID:        oid(n),
		FirstName: first,
		LastName:  "Student",
		Email:     first + "@example.edu",
		Role:      types.RoleStudent,
		Profile:   types.Profile{Resume: &resume, Skills: skills},
	}
}

func newFixture() (*fakeStore, *fakeResumes, *fakeEmbedder) {
	store := &fakeStore{students: []types.User{
		student(1, "Asha", "https://cdn/asha.pdf", "go"),
		student(2, "Bilal", "https://cdn/bilal.docx"),
		student(3, "Chen", "https://cdn/chen.pdf", "python", "sql"),
	}}
	resumes := &fakeResumes{texts: map[string]string{
		"https://cdn/asha.pdf": "alpha",
		"https://cdn/chen.pdf": "gamma",
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"backend engineer": {1, 0},
		"alpha":            {1, 0},
		"gamma":            {1, 1},
	}}
	return store, resumes, embedder
}

func TestATS_MatchAll(t *testing.T) {
	store, resumes, embedder := newFixture()
	ats := NewATS(store, resumes, embedder, 4)

	got, err := ats.MatchAll(context.Background(), "backend engineer")
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, types.MatchResult{Name: "Asha Student", Email: "Asha@example.edu", Skills: []string{"go"}, ATSScore: 100}, got[0])
	assert.Equal(t, "Chen Student", got[1].Name)
	assert.InDelta(t, 70.71, got[1].ATSScore, 1e-9)
	assert.Equal(t, "Bilal Student", got[2].Name)
	assert.Zero(t, got[2].ATSScore)
	assert.Equal(t, []string{}, got[2].Skills)

	assert.Equal(t, []string{"backend engineer", "alpha", "gamma"}, embedder.inputs)
	assert.EqualValues(t, 1, embedder.calls.Load())
}

func TestATS_MatchAll_NoStudents(t *testing.T) {
	_, resumes, embedder := newFixture()
	ats := NewATS(&fakeStore{}, resumes, embedder, 4)

	got, err := ats.MatchAll(context.Background(), "backend engineer")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, embedder.calls.Load())

	body, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestATS_MatchAll_AllResumesUnreadable(t *testing.T) {
	store, _, embedder := newFixture()
	ats := NewATS(store, &fakeResumes{}, embedder, 4)

	got, err := ats.MatchAll(context.Background(), "backend engineer")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.Zero(t, r.ATSScore)
	}
	// Ties keep store order.
	assert.Equal(t, "Asha Student", got[0].Name)
	assert.Equal(t, "Chen Student", got[2].Name)
	assert.Zero(t, embedder.calls.Load())
}

func TestATS_MatchAll_RanksOnUnroundedScore(t *testing.T) {
	store := &fakeStore{students: []types.User{
		student(1, "Dev", "https://cdn/dev.pdf"),
		student(2, "Esha", "https://cdn/esha.pdf"),
	}}
	resumes := &fakeResumes{texts: map[string]string{
		"https://cdn/dev.pdf":  "delta",
		"https://cdn/esha.pdf": "epsilon",
	}}
	// Both land on 70.71 once rounded; epsilon is the closer match.
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"job":     {1, 0},
		"delta":   {3, 3.0001},
		"epsilon": {3, 2.9999},
	}}

	got, err := NewATS(store, resumes, embedder, 2).MatchAll(context.Background(), "job")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Esha Student", got[0].Name)
	assert.Equal(t, "Dev Student", got[1].Name)
	assert.Equal(t, 70.71, got[0].ATSScore)
	assert.Equal(t, 70.71, got[1].ATSScore)
}

func TestATS_MatchAll_BoundsConcurrency(t *testing.T) {
	store := &fakeStore{}
	texts := map[string]string{}
	for i := range 8 {
		url := fmt.Sprintf("https://cdn/%d.pdf", i)
		store.students = append(store.students, student(i+1, fmt.Sprintf("s%d", i), url))
		texts[url] = ""
	}
	resumes := &fakeResumes{texts: texts, delay: 20 * time.Millisecond}

	_, err := NewATS(store, resumes, &fakeEmbedder{}, 2).MatchAll(context.Background(), "job")
	require.NoError(t, err)
	assert.LessOrEqual(t, resumes.maxInFlight, 2)
	assert.Positive(t, resumes.maxInFlight)
}

func TestATS_MatchAll_Errors(t *testing.T) {
	t.Run("storage failure", func(t *testing.T) {
		_, resumes, embedder := newFixture()
		boom := errors.New("connection reset")
		_, err := NewATS(&fakeStore{err: boom}, resumes, embedder, 1).MatchAll(context.Background(), "job")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("embedding failure", func(t *testing.T) {
		store, resumes, _ := newFixture()
		embedder := embedding.Instrument(&fakeEmbedder{err: errors.New("503")})
		_, err := NewATS(store, resumes, embedder, 1).MatchAll(context.Background(), "backend engineer")
		assert.ErrorIs(t, err, embedding.ErrUnavailable)
	})

	t.Run("cancelled context", func(t *testing.T) {
		store, resumes, embedder := newFixture()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewATS(store, resumes, embedder, 1).MatchAll(ctx, "backend engineer")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, embedder.calls.Load())
	})
}

func TestATS_MatchStudent(t *testing.T) {
	store, resumes, embedder := newFixture()
	ats := NewATS(store, resumes, embedder, 1)

	t.Run("found", func(t *testing.T) {
		got, err := ats.MatchStudent(context.Background(), oid(3), "backend engineer")
		require.NoError(t, err)
		assert.Equal(t, "Chen Student", got.Name)
		assert.Equal(t, []string{"python", "sql"}, got.Skills)
		assert.InDelta(t, 70.71, got.ATSScore, 1e-9)
	})

	t.Run("unreadable resume scores zero", func(t *testing.T) {
		before := embedder.calls.Load()
		got, err := ats.MatchStudent(context.Background(), oid(2), "backend engineer")
		require.NoError(t, err)
		assert.Zero(t, got.ATSScore)
		assert.Equal(t, before, embedder.calls.Load())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := ats.MatchStudent(context.Background(), oid(99), "backend engineer")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := ats.MatchStudent(context.Background(), "not-an-id", "backend engineer")
		assert.ErrorIs(t, err, storage.ErrInvalidID)
	})
}

func alumnus(n int, college string, skills, interests []string) types.User {
	return types.User{
		ID:             oid(100 + n),
		FirstName:      fmt.Sprintf("Alum%d", n),
		Role:           types.RoleAlumni,
		CollegeCode:    college,
		ApprovalStatus: types.ApprovalApproved,
		Profile:        types.Profile{Skills: skills, Interests: interests},
	}
}

func recommendFixture() *fakeStore {
	me := types.User{
		ID:          oid(1),
		FirstName:   "Asha",
		Role:        types.RoleStudent,
		CollegeCode: "C1",
		Profile: types.Profile{
			Skills:    []string{"go", "kubernetes"},
			Interests: []string{"cloud"},
		},
	}
	return &fakeStore{
		students: []types.User{me},
		alumni: []types.User{
			alumnus(1, "C1", []string{"go", "kubernetes"}, []string{"cloud"}),
			alumnus(2, "C2", []string{"go", "kubernetes"}, nil),
			alumnus(3, "C2", []string{"python"}, nil),
			alumnus(4, "C1", nil, nil),
		},
	}
}

func TestRecommender_Recommend(t *testing.T) {
	store := recommendFixture()
	r := NewRecommender(store, config.Recommend{Threshold: 0.4, Limit: 10})

	got, err := r.Recommend(context.Background(), oid(1))
	require.NoError(t, err)

	require.Len(t, got.SameCollege, 1)
	assert.Equal(t, types.AlumniRecommendation{
		ID:          oid(101),
		Name:        "Alum1",
		CollegeCode: "C1",
		Skills:      []string{"go", "kubernetes"},
		Interests:   []string{"cloud"},
		Score:       1,
	}, got.SameCollege[0])

	require.Len(t, got.OtherCollege, 1)
	assert.Equal(t, oid(102), got.OtherCollege[0].ID)
	assert.Equal(t, 0.753, got.OtherCollege[0].Score)
	assert.Equal(t, []string{}, got.OtherCollege[0].Interests)
}

func TestRecommender_Threshold(t *testing.T) {
	r := NewRecommender(recommendFixture(), config.Recommend{Threshold: 0.8, Limit: 10})

	got, err := r.Recommend(context.Background(), oid(1))
	require.NoError(t, err)
	assert.Len(t, got.SameCollege, 1)
	assert.Empty(t, got.OtherCollege)
	assert.NotNil(t, got.OtherCollege)
}

func TestRecommender_LimitAndOrder(t *testing.T) {
	store := recommendFixture()
	store.alumni = []types.User{
		alumnus(1, "C1", []string{"go"}, nil),
		alumnus(2, "C1", []string{"go", "kubernetes"}, []string{"cloud"}),
		alumnus(3, "C1", []string{"go", "kubernetes"}, nil),
	}
	r := NewRecommender(store, config.Recommend{Threshold: 0.4, Limit: 2})

	got, err := r.Recommend(context.Background(), oid(1))
	require.NoError(t, err)
	require.Len(t, got.SameCollege, 2)
	assert.Equal(t, oid(102), got.SameCollege[0].ID)
	assert.Equal(t, oid(103), got.SameCollege[1].ID)
	assert.GreaterOrEqual(t, got.SameCollege[0].Score, got.SameCollege[1].Score)
}

func TestRecommender_EmptyGroups(t *testing.T) {
	t.Run("student without skills or interests", func(t *testing.T) {
		store := recommendFixture()
		store.students[0].Profile = types.Profile{Skills: []string{" "}}
		got, err := NewRecommender(store, config.Recommend{Threshold: 0.4, Limit: 10}).Recommend(context.Background(), oid(1))
		require.NoError(t, err)
		assert.Equal(t, types.EmptyRecommendations(), got)
		assert.Zero(t, store.alumniCalls)
	})

	t.Run("no alumni with a profile", func(t *testing.T) {
		store := recommendFixture()
		store.alumni = []types.User{alumnus(1, "C1", nil, nil)}
		got, err := NewRecommender(store, config.Recommend{Threshold: 0.4, Limit: 10}).Recommend(context.Background(), oid(1))
		require.NoError(t, err)

		body, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, `{"sameCollege":[],"otherCollege":[]}`, string(body))
	})
}

func TestRecommender_Errors(t *testing.T) {
	r := NewRecommender(recommendFixture(), config.Recommend{Threshold: 0.4, Limit: 10})

	_, err := r.Recommend(context.Background(), oid(42))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = r.Recommend(context.Background(), "xyz")
	assert.ErrorIs(t, err, storage.ErrInvalidID)
}
