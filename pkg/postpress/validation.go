package postpress

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// ListQuery is the typed form of a validated listing request.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
	SortBy string
}

// Offset reports the number of records to skip for the requested page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

var sortableFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"heading":    true,
}

type listParams struct {
	Page   int    `validate:"min=1"`
	Limit  int    `validate:"min=1,max=100"`
	Search string `validate:"max=100"`
}

type createParams struct {
	Heading     string `validate:"required,min=3,max=200"`
	Description string `validate:"required,min=10"`
}

type updateParams struct {
	Heading     *string `validate:"omitnil,min=3,max=200"`
	Description *string `validate:"omitnil,min=10"`
}

// ValidateListRequest parses and bounds raw listing parameters, applying
// defaults for absent values.
func ValidateListRequest(req ListPostsRequest) (ListQuery, error) {
	verr := newValidationError()

	q := ListQuery{Page: DefaultPage, Limit: DefaultLimit, SortBy: DefaultSortBy}

	if v := strings.TrimSpace(req.Page); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			verr.add("page", "page must be an integer")
		} else {
			q.Page = n
		}
	}
	if v := strings.TrimSpace(req.Limit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			verr.add("limit", "limit must be an integer")
		} else {
			q.Limit = n
		}
	}
	q.Search = strings.TrimSpace(req.Search)

	if v := strings.TrimSpace(req.Sort); v != "" {
		field := strings.TrimPrefix(v, "-")
		if !sortableFields[field] {
			verr.add("sort", fmt.Sprintf("sort must be one of created_at, updated_at, heading, optionally prefixed with '-': got %q", v))
		} else {
			q.SortBy = v
		}
	}

	collectFieldErrors(verr, validate.Struct(listParams{Page: q.Page, Limit: q.Limit, Search: q.Search}))

	if !verr.empty() {
		return ListQuery{}, verr
	}
	return q, nil
}

// ValidateCreateRequest checks creation fields and returns their trimmed
// values.
func ValidateCreateRequest(req CreatePostRequest) (heading, description string, err error) {
	verr := newValidationError()

	heading = strings.TrimSpace(req.Heading)
	description = strings.TrimSpace(req.Description)

	collectFieldErrors(verr, validate.Struct(createParams{Heading: heading, Description: description}))

	if !verr.empty() {
		return "", "", verr
	}
	return heading, description, nil
}

// ValidateUpdateRequest checks the record identifier and any supplied
// fields, returning the parsed identifier and trimmed partial fields.
func ValidateUpdateRequest(req UpdatePostRequest) (uuid.UUID, PostFields, error) {
	verr := newValidationError()

	id, err := uuid.Parse(req.ID)
	if err != nil {
		verr.add("id", "id must be a valid post identifier")
	}

	var fields PostFields
	if req.Heading != nil {
		h := strings.TrimSpace(*req.Heading)
		fields.Heading = &h
	}
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		fields.Description = &d
	}

	collectFieldErrors(verr, validate.Struct(updateParams{
		Heading:     fields.Heading,
		Description: fields.Description,
	}))

	if !verr.empty() {
		return uuid.Nil, PostFields{}, verr
	}
	return id, fields, nil
}

// ValidatePostID checks that a path identifier is syntactically valid.
func ValidatePostID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		verr := newValidationError()
		verr.add("id", "id must be a valid post identifier")
		return uuid.Nil, verr
	}
	return id, nil
}

// collectFieldErrors translates validator tag failures into ordered
// per-field messages.
func collectFieldErrors(verr *ValidationError, err error) {
	if err == nil {
		return
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		verr.add("_", err.Error())
		return
	}
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		verr.add(field, fieldMessage(field, fe))
	}
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		switch field {
		case "page", "limit":
			return fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "heading":
			return fmt.Sprintf("heading must be between %d and %d characters", HeadingMinLen, HeadingMaxLen)
		default:
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
	case "max":
		switch field {
		case "limit":
			return fmt.Sprintf("limit must be at most %s", fe.Param())
		case "heading":
			return fmt.Sprintf("heading must be between %d and %d characters", HeadingMinLen, HeadingMaxLen)
		default:
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
