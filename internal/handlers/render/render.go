package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kudipay/settler/internal/handlers/requestid"
)

const CodeInvalidRequest = "INVALID_REQUEST"

var validate = validator.New()

func init() {
	configureValidator(validate)
}

type Struct any

// ErrorResponse is the error envelope shared by every endpoint. Message is
// always drawn from a fixed user safe table, upstream error text never ends
// up here.
type ErrorResponse struct {
	Success   bool              `json:"success"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

func JSON(w http.ResponseWriter, data any) {
	JSONWithStatus(w, data, http.StatusOK)
}

// Render error envelope with the given code and user safe message
func Error(w http.ResponseWriter, r *http.Request, code string, message string, status int) {
	response := ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: requestid.FromContext(r.Context()),
	}

	JSONWithStatus(w, response, status)
}

// Render json DecodeError
func DecodeError(w http.ResponseWriter, r *http.Request, err error) {
	response := ErrorResponse{
		Code:      CodeInvalidRequest,
		Message:   "Please check your details and try again.",
		RequestID: requestid.FromContext(r.Context()),
	}

	// Point at the offending field when the decoder knows it
	if typeErr, ok := err.(*json.UnmarshalTypeError); ok && typeErr.Field != "" {
		response.Fields = map[string]string{typeErr.Field: "Invalid data type"}
	}

	JSONWithStatus(w, response, http.StatusBadRequest)
}

// Render ValidationErrors
func ValidationErrors(w http.ResponseWriter, r *http.Request, errs validator.ValidationErrors) {
	response := ErrorResponse{
		Code:      CodeInvalidRequest,
		Message:   "Please check your details and try again.",
		Fields:    make(map[string]string, len(errs)),
		RequestID: requestid.FromContext(r.Context()),
	}

	// Create user-friendly error messages based on validation tag
	for _, fieldError := range errs {
		var message string
		switch fieldError.Tag() {
		case "required":
			message = "This field is required"
		case "min":
			message = fmt.Sprintf("Value is too short (minimum %s)", fieldError.Param())
		case "oneof":
			message = fmt.Sprintf("Value must be one of: %s", fieldError.Param())
		default:
			message = "Invalid value"
		}

		response.Fields[fieldError.Field()] = message
	}

	JSONWithStatus(w, response, http.StatusBadRequest)
}

// BindAndValidate decodes JSON request body into type T and validates it using struct tags.
// Returns the decoded value and writes appropriate error responses for decoding or validation failures.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		DecodeError(w, r, err)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		// pretty sure cast will be ok cause expecting T is valid struct
		errs := err.(validator.ValidationErrors)
		ValidationErrors(w, r, errs)
		return value, err
	}

	return value, nil
}

// JSONWithStatus sends data as json and enforces status code
func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
