package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// fieldError is one entry of a 422 response, shaped like FastAPI's.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeFieldErrors(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]fieldError{"detail": errs})
}

// newValidator reports fields under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and returns false on failure. An empty body decodes to the
// zero value when allowEmpty is set.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			writeFieldErrors(w, []fieldError{{
				Loc:  []string{"body"},
				Msg:  fmt.Sprintf("invalid JSON body: %v", err),
				Type: "json_invalid",
			}})
			return false
		}
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{
				Loc:  []string{"body", fe.Field()},
				Msg:  validationMessage(fe),
				Type: fe.Tag(),
			})
		}
		writeFieldErrors(w, out)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field required"
	case "gt":
		return "Input should be greater than " + fe.Param()
	case "gte":
		return "Input should be greater than or equal to " + fe.Param()
	case "oneof":
		return "Input should be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "Value is not a valid email address"
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}
