// Package types holds the shared data structures (models) used across
// the application. Handlers, services and storage backends all import
// types without depending on each other.
package types

import "strings"

// Roles and approval states stored on a User.
const (
	RoleStudent = "student"
	RoleAlumni  = "alumni"

	ApprovalApproved = "approved"
)

// User is a profile record as read from the store. The service only ever
// reads users; it never creates or mutates them outside of seeding.
type User struct {
	ID             string  `json:"id"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Email          string  `json:"email"`
	Role           string  `json:"role"`
	CollegeCode    string  `json:"collegeCode"`
	ApprovalStatus string  `json:"approvalStatus"`
	Profile        Profile `json:"profile"`
}

// Profile is the loosely structured part of a User.
//
// Resume is a pointer so that "no résumé field" and "résumé is null" can
// both be told apart from an empty string, matching how the store filters.
type Profile struct {
	Resume    *string  `json:"resume,omitempty"`
	Skills    []string `json:"skills"`
	Interests []string `json:"interests"`
}

// FullName joins first and last name and trims the result, so a user
// with only one of them set doesn't get a stray space.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ResumeURL returns the résumé location or "" when none is stored.
func (u User) ResumeURL() string {
	if u.Profile.Resume == nil {
		return ""
	}
	return *u.Profile.Resume
}

// MatchRequest is the body of POST /ats_match_all.
//
// JobDomain is required by the API contract but does not influence
// scoring.
type MatchRequest struct {
	JobDesc   string `json:"job_desc" validate:"required"`
	JobDomain string `json:"job_domain" validate:"required"`
}

// Trim strips surrounding whitespace so that "   " fails "required".
func (r *MatchRequest) Trim() {
	r.JobDesc = strings.TrimSpace(r.JobDesc)
	r.JobDomain = strings.TrimSpace(r.JobDomain)
}

// MatchStudentRequest is the body of POST /ats_match_student.
type MatchStudentRequest struct {
	StudentID string `json:"student_id" validate:"required,objectid"`
	JobDesc   string `json:"job_desc" validate:"required"`
	JobDomain string `json:"job_domain" validate:"required"`
}

// Trim strips surrounding whitespace from every field.
func (r *MatchStudentRequest) Trim() {
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.JobDesc = strings.TrimSpace(r.JobDesc)
	r.JobDomain = strings.TrimSpace(r.JobDomain)
}

// MatchResult is one student's ATS score against a job description.
// ATSScore is a percentage rounded to two decimals.
type MatchResult struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Skills   []string `json:"skills"`
	ATSScore float64  `json:"ats_score"`
}

// AlumniRecommendation is one recommended alumnus. Score is the TF-IDF
// cosine similarity rounded to three decimals.
type AlumniRecommendation struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CollegeCode string   `json:"collegeCode"`
	Skills      []string `json:"skills"`
	Interests   []string `json:"interests"`
	Score       float64  `json:"score"`
}

// Recommendations groups alumni by whether they share the student's college.
type Recommendations struct {
	SameCollege  []AlumniRecommendation `json:"sameCollege"`
	OtherCollege []AlumniRecommendation `json:"otherCollege"`
}

// EmptyRecommendations returns groups that encode as [] rather than null.
func EmptyRecommendations() Recommendations {
	return Recommendations{
		SameCollege:  []AlumniRecommendation{},
		OtherCollege: []AlumniRecommendation{},
	}
}

// NonNil returns s, or an empty slice when s is nil, so JSON encodes [].
func NonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
