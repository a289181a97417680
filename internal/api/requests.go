package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vytor/memcore/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Pointer fields let 0 pass "required" while a missing field does not.

type reviewRequest struct {
	UserID *int32 `json:"user_id" validate:"required"`
	CardID *int32 `json:"card_id" validate:"required"`
	Rating *int   `json:"rating" validate:"required,min=0,max=3"`
}

type addCardRequest struct {
	UserID  *int32 `json:"user_id" validate:"required"`
	CardID  *int32 `json:"card_id" validate:"required"`
	TopicID *int32 `json:"topic_id" validate:"required"`
}

type createTopicRequest struct {
	UserID  *int32 `json:"user_id" validate:"required"`
	TopicID *int32 `json:"topic_id" validate:"required"`
	Name    string `json:"name" validate:"max=65536"`
}

// decodeAndValidate reads a JSON body into v and checks its validate tags.
func decodeAndValidate(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewBadRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !asValidationErrors(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.NewBadRequestError(err.Error())
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return errors.NewValidationError(fe.Field(), "is required")
	case "min", "max":
		// Only rating carries bounds.
		if fe.Field() == "rating" {
			return errors.NewValidationError(fe.Field(), "must be between 0 and 3")
		}
		return errors.NewValidationError(fe.Field(), fmt.Sprintf("violates %s=%s", fe.Tag(), fe.Param()))
	default:
		return errors.NewValidationError(fe.Field(), fmt.Sprintf("failed %s check", fe.Tag()))
	}
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = fieldErrs
	}
	return ok
}

// queryInt32 parses a required int32 query parameter.
func queryInt32(r *http.Request, name string) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.NewValidationError(name, "is required")
	}
	return parseInt32(name, raw)
}

func parseInt32(name, raw string) (int32, error) {
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, errors.NewValidationError(name, "must be a 32-bit integer")
	}
	return int32(v), nil
}
