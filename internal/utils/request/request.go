// Package request decodes and validates JSON request bodies.
//
// A single validator instance is shared by every handler. It caches struct
// metadata and is safe for concurrent use, and it reports field names as
// they appear in JSON ("job_desc", not "JobDesc").
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/alumni-match-api/internal/storage"
)

// ErrEmptyBody is returned by DecodeJSON when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// maxBodyBytes caps how much of a request body is read.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// objectid accepts the same ids as every storage backend.
	mustRegister(v, "objectid", func(fl validator.FieldLevel) bool {
		return storage.ValidateID(fl.Field().String()) == nil
	})
	return v
}

// mustRegister panics if tag cannot be registered; a missing tag would
// otherwise fail every field that uses it.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("request: register %q validation: %v", tag, err))
	}
}

// DecodeJSON reads r's body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	if err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// Validate checks v's validate tags. A failed check returns
// validator.ValidationErrors.
func Validate(v any) error {
	return validate.Struct(v)
}
