// Package recommend contains the HTTP handler that suggests alumni mentors
// to a student.
package recommend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aanand-mishra/alumni-match-api/internal/storage"
	"github.com/aanand-mishra/alumni-match-api/internal/types"
	"github.com/aanand-mishra/alumni-match-api/internal/utils/response"
)

// Recommender is the recommendation service the handler calls.
type Recommender interface {
	Recommend(ctx context.Context, studentID string) (types.Recommendations, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Get handles GET /recommend?studentId={id}
// Returns approved alumni whose skills and interests overlap the student's,
// grouped by whether they attend the same college.
//
// Success response (200 OK):
//
//	{
//	  "sameCollege":  [ { "id": "...", "name": "...", "collegeCode": "C1",
//	                      "skills": [...], "interests": [...], "score": 0.812 } ],
//	  "otherCollege": []
//	}
//
// Error responses:
//
//	400 Bad Request  studentId is missing or not a 24-character hex id
//	404 Not Found    no student with that id
//	500 Internal     storage error
//
// ─────────────────────────────────────────────────────────────────────────────
func Get(svc Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.URL.Query().Get("studentId"))
		slog.Info("recommending alumni", slog.String("student_id", id))

		if err := storage.ValidateID(id); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Error("Invalid studentId format"))
			return
		}

		recs, err := svc.Recommend(r.Context(), id)
		switch {
		case errors.Is(err, storage.ErrInvalidID):
			response.WriteJSON(w, http.StatusBadRequest, response.Error("Invalid studentId format"))
			return
		case errors.Is(err, storage.ErrNotFound):
			response.WriteJSON(w, http.StatusNotFound, response.Error("Student not found"))
			return
		case err != nil:
			slog.Error("error recommending alumni",
				slog.String("student_id", id),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("alumni recommended",
			slog.String("student_id", id),
			slog.Int("same_college", len(recs.SameCollege)),
			slog.Int("other_college", len(recs.OtherCollege)))

		response.WriteJSON(w, http.StatusOK, recs)
	}
}
