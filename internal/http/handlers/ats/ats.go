// Package ats contains the HTTP handlers that rank student résumés against
// a job description.
//
// Handlers follow the closure / factory pattern: the factory receives its
// dependencies once at startup and returns the http.HandlerFunc that runs
// on every request.
//
//	router.HandleFunc("POST /ats_match_all", ats.MatchAll(svc))
package ats

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/alumni-match-api/internal/embedding"
	"github.com/aanand-mishra/alumni-match-api/internal/storage"
	"github.com/aanand-mishra/alumni-match-api/internal/types"
	"github.com/aanand-mishra/alumni-match-api/internal/utils/request"
	"github.com/aanand-mishra/alumni-match-api/internal/utils/response"
)

// Client-facing error messages.
const (
	msgMissingMatchAll     = "Missing job_desc or job_domain"
	msgMissingMatchStudent = "Missing student_id, job_desc, or job_domain"
	msgInvalidStudentID    = "Invalid student_id"
	msgStudentNotFound     = "Student not found or no resume available"
	msgEmbeddingDown       = "embedding service unavailable"
)

// Matcher is the ranking service the handlers call.
type Matcher interface {
	MatchAll(ctx context.Context, jobDesc string) ([]types.MatchResult, error)
	MatchStudent(ctx context.Context, studentID, jobDesc string) (types.MatchResult, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// MatchAll handles POST /ats_match_all
// Ranks every student that has a résumé against the job description.
//
// Request body (JSON):
//
//	{ "job_desc": "Backend engineer, Go and Postgres", "job_domain": "software" }
//
// Success response (200 OK), best match first:
//
//	[ { "name": "Asha Rao", "email": "asha@x.edu", "skills": ["go"], "ats_score": 71.42 } ]
//
// Error responses:
//
//	400 Bad Request  empty body, malformed JSON, or a blank field
//	502 Bad Gateway  the embedding provider failed
//	500 Internal     storage error
//
// ─────────────────────────────────────────────────────────────────────────────
func MatchAll(svc Matcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.MatchRequest
		if err := request.DecodeJSON(w, r, &req); err != nil {
			slog.Info("rejecting ats match request", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusBadRequest, response.Error(msgMissingMatchAll))
			return
		}

		req.Trim()
		if err := request.Validate(req); err != nil {
			logValidation(err)
			response.WriteJSON(w, http.StatusBadRequest, response.Error(msgMissingMatchAll))
			return
		}

		slog.Info("ranking students", slog.String("job_domain", req.JobDomain))

		results, err := svc.MatchAll(r.Context(), req.JobDesc)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		slog.Info("students ranked", slog.Int("count", len(results)))
		response.WriteJSON(w, http.StatusOK, results)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// MatchStudent handles POST /ats_match_student
// Scores a single student's résumé against the job description.
//
// Request body (JSON):
//
//	{ "student_id": "665f1c...", "job_desc": "...", "job_domain": "software" }
//
// Success response (200 OK):
//
//	{ "name": "Asha Rao", "email": "asha@x.edu", "skills": ["go"], "ats_score": 71.42 }
//
// Error responses:
//
//	400 Bad Request  missing field, or student_id is not a 24-character hex id
//	404 Not Found    no such student, or the student has no résumé
//	502 Bad Gateway  the embedding provider failed
//	500 Internal     storage error
//
// ─────────────────────────────────────────────────────────────────────────────
func MatchStudent(svc Matcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.MatchStudentRequest
		if err := request.DecodeJSON(w, r, &req); err != nil {
			slog.Info("rejecting ats student request", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusBadRequest, response.Error(msgMissingMatchStudent))
			return
		}

		req.Trim()
		if err := request.Validate(req); err != nil {
			logValidation(err)
			msg := msgMissingMatchStudent
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && !response.HasTag(verrs, "required") {
				msg = msgInvalidStudentID
			}
			response.WriteJSON(w, http.StatusBadRequest, response.Error(msg))
			return
		}

		slog.Info("scoring student",
			slog.String("student_id", req.StudentID),
			slog.String("job_domain", req.JobDomain))

		result, err := svc.MatchStudent(r.Context(), req.StudentID, req.JobDesc)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, result)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidID):
		response.WriteJSON(w, http.StatusBadRequest, response.Error(msgInvalidStudentID))
	case errors.Is(err, storage.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound, response.Error(msgStudentNotFound))
	case errors.Is(err, embedding.ErrUnavailable):
		slog.Error("embedding failed", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusBadGateway, response.Error(msgEmbeddingDown))
	default:
		slog.Error("ats match failed", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
	}
}

func logValidation(err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		slog.Info("request failed validation",
			slog.String("detail", response.ValidationError(verrs).Error))
		return
	}
	slog.Warn("request validation error", slog.String("error", err.Error()))
}
