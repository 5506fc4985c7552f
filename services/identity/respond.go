package identity

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/validation"
)

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Message: message})
}

// decode reads a JSON body into dst and validates it. On failure it writes
// the 400 response and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := validation.Struct(dst); err != nil {
		var fields validation.FieldErrors
		if errors.As(err, &fields) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation failed", Errors: fields})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// checkPassword writes a 400 when the password breaks the policy.
func checkPassword(w http.ResponseWriter, users *auth.Service, password string) bool {
	if err := users.ValidatePassword(password); err != nil {
		var policy *auth.PasswordPolicyError
		if errors.As(err, &policy) {
			writeError(w, http.StatusBadRequest, policy.Reason)
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid password")
		return false
	}
	return true
}
