package serializer

import (
	"net/http"

	"github.com/sakif/company-reviews/internal/apperror"
)

// Credentials is the body of a token request.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// DecodeCredentials reads a username and password from r. The password is
// taken verbatim; only the username is trimmed.
func DecodeCredentials(w http.ResponseWriter, r *http.Request) (*Credentials, error) {
	vals, err := readValues(w, r)
	if err != nil {
		return nil, err
	}

	fe := apperror.FieldErrors{}
	c := &Credentials{}
	c.Username, _ = vals.str("username", true, fe)
	c.Password, _ = vals.str("password", false, fe)

	translate(validate.Struct(c), fe, commonMessage)

	if err := fe.Err(); err != nil {
		return nil, err
	}
	return c, nil
}
