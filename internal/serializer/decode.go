// Package serializer converts between the wire format and the model types.
//
// Input can be JSON or an HTML form, the two encodings clients of this API
// use. Decoding collects every problem per field instead of stopping at the
// first, so a client can fix a whole form in one round trip.
package serializer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/company-reviews/internal/apperror"
)

// maxBodyBytes caps request bodies. A review summary tops out at 10000
// characters, so 1MB leaves plenty of headroom.
const maxBodyBytes = 1_048_576

// Field messages shown to clients.
const (
	msgRequired   = "This field is required."
	msgBlank      = "This field may not be blank."
	msgNull       = "This field may not be null."
	msgNotString  = "Not a valid string."
	msgNotInteger = "A valid integer is required."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire name so messages line up with the payload.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// values holds the decoded top-level fields of a request body. A key is
// present only if the client sent it; a nil value means an explicit JSON null.
type values map[string]any

// readValues decodes r's body as a form or as a JSON object, based on the
// Content-Type. Anything that isn't a form is treated as JSON.
func readValues(w http.ResponseWriter, r *http.Request) (values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, apperror.ValidationFailed(apperror.NonFieldErrors, "Malformed form data.")
		}
		return formValues(r.PostForm), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, apperror.ValidationFailed(apperror.NonFieldErrors, "Malformed form data.")
		}
		return formValues(r.MultipartForm.Value), nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty body is an empty object: every field is missing.
			return values{}, nil
		}
		return nil, apperror.ValidationFailed(apperror.NonFieldErrors,
			fmt.Sprintf("JSON parse error - %s", err.Error()))
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, apperror.ValidationFailed(apperror.NonFieldErrors,
			fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", jsonKind(raw)))
	}
	return values(obj), nil
}

func formValues(form map[string][]string) values {
	v := make(values, len(form))
	for key, vals := range form {
		if len(vals) > 0 {
			v[key] = vals[0]
		}
	}
	return v
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "list"
	case string:
		return "str"
	case json.Number:
		return "number"
	case bool:
		return "bool"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}

// str reads a string field. Numbers are accepted and kept in their textual
// form. When trim is set, surrounding whitespace is removed.
func (v values) str(name string, trim bool, fe apperror.FieldErrors) (string, bool) {
	raw, present := v[name]
	if !present {
		fe.Add(name, msgRequired)
		return "", false
	}

	var s string
	switch val := raw.(type) {
	case nil:
		fe.Add(name, msgNull)
		return "", false
	case string:
		s = val
	case json.Number:
		s = val.String()
	default:
		fe.Add(name, msgNotString)
		return "", false
	}

	if trim {
		s = strings.TrimSpace(s)
	}
	return s, true
}

// text reads a field as the text a client typed, for integer and choice
// fields. JSON numbers and strings both qualify.
func (v values) text(name string, fe apperror.FieldErrors) (string, bool) {
	raw, present := v[name]
	if !present {
		fe.Add(name, msgRequired)
		return "", false
	}

	switch val := raw.(type) {
	case nil:
		fe.Add(name, msgNull)
		return "", false
	case string:
		return strings.TrimSpace(val), true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		fe.Add(name, msgNotInteger)
		return "", false
	}
}

// translate converts validator failures into client messages. Fields that
// already have a decoding error are skipped so each problem is reported once.
func translate(err error, fe apperror.FieldErrors, message func(validator.FieldError) string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, ve := range verrs {
		if fe.Has(ve.Field()) {
			continue
		}
		fe.Add(ve.Field(), message(ve))
	}
}

// commonMessage covers the tags shared by every payload.
func commonMessage(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return msgBlank
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", ve.Param())
	default:
		return fmt.Sprintf("Failed on the %q rule.", ve.Tag())
	}
}
