// Package validation checks calendar rows before a run publishes anything.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"crier/internal/calendar"
)

// Code identifies the kind of issue found in a row.
type Code string

const (
	CodeMalformedRow    Code = "malformed-row"
	CodeInvalidDate     Code = "invalid-date"
	CodeInvalidPlatform Code = "invalid-platform"
	CodeEmptyContent    Code = "empty-content"
	CodeEmptyThread     Code = "empty-thread"
	CodeLengthWarning   Code = "length-warning"
)

// Issue is one finding in one row. Row numbers are 1-based and count the
// header, so the first data row is row 2.
type Issue struct {
	Row     int
	Code    Code
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("Row %d: %s", i.Row, i.Message)
}

// Result collects every issue across the calendar. Any error blocks the
// run; warnings are advisory.
type Result struct {
	Errors   []Issue
	Warnings []Issue
}

// OK reports whether publishing may proceed.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// CalendarValidator performs structural and per-platform validation of
// calendar rows.
type CalendarValidator struct {
	validator *validator.Validate
}

// NewCalendarValidator constructs a CalendarValidator with standard struct
// validation.
func NewCalendarValidator() *CalendarValidator {
	return &CalendarValidator{
		validator: validator.New(),
	}
}

type rowSchema struct {
	PlannedDate string `validate:"required,datetime=2006-01-02"`
}

// ValidateRows checks every data row and collects all issues rather than
// failing fast: the operator fixes the whole calendar in one pass.
func (v *CalendarValidator) ValidateRows(rows [][]string) Result {
	var res Result
	for i, row := range rows {
		v.validateRow(i+2, row, &res)
	}
	return res
}

func (v *CalendarValidator) validateRow(rowNum int, row []string, res *Result) {
	entry, ok := calendar.ParseRow(row)
	if !ok {
		res.Errors = append(res.Errors, Issue{
			Row:     rowNum,
			Code:    CodeMalformedRow,
			Message: fmt.Sprintf("malformed row: expected 4 columns, found %d", len(row)),
		})
		// the remaining checks need the full shape
		return
	}

	if err := v.validator.Struct(rowSchema{PlannedDate: entry.PlannedDate}); err != nil {
		res.Errors = append(res.Errors, Issue{
			Row:     rowNum,
			Code:    CodeInvalidDate,
			Message: fmt.Sprintf("invalid date %q (expected YYYY-MM-DD)", entry.PlannedDate),
		})
	}

	if !entry.Platform.Valid() {
		res.Errors = append(res.Errors, Issue{
			Row:     rowNum,
			Code:    CodeInvalidPlatform,
			Message: fmt.Sprintf("unsupported platform %q (supported: %s)", entry.Platform, supportedPlatforms()),
		})
	}

	v.validateContent(rowNum, entry, res)
}

// validateContent dispatches per platform, the thread form getting its own
// split and per-part checks.
func (v *CalendarValidator) validateContent(rowNum int, entry calendar.Entry, res *Result) {
	if strings.TrimSpace(entry.Content) == "" {
		res.Errors = append(res.Errors, Issue{
			Row:     rowNum,
			Code:    CodeEmptyContent,
			Message: "content is empty",
		})
		return
	}

	if entry.Platform.IsThread() {
		parts := calendar.SplitThread(entry.Content)
		if len(parts) == 0 {
			res.Errors = append(res.Errors, Issue{
				Row:     rowNum,
				Code:    CodeEmptyThread,
				Message: "thread content splits to zero parts",
			})
			return
		}
		for idx, part := range parts {
			if n := utf8.RuneCountInString(part); n > calendar.MaxPostLength {
				res.Warnings = append(res.Warnings, Issue{
					Row:     rowNum,
					Code:    CodeLengthWarning,
					Message: fmt.Sprintf("thread part %d is %d characters (limit %d); it will be truncated", idx+1, n, calendar.MaxPostLength),
				})
			}
		}
		return
	}

	if entry.Platform != calendar.PlatformPost {
		// length advice only applies to platforms whose limit we know
		return
	}
	if n := utf8.RuneCountInString(entry.Content); n > calendar.MaxPostLength {
		res.Warnings = append(res.Warnings, Issue{
			Row:     rowNum,
			Code:    CodeLengthWarning,
			Message: fmt.Sprintf("content is %d characters (limit %d); it will be truncated", n, calendar.MaxPostLength),
		})
	}
}

func supportedPlatforms() string {
	platforms := calendar.Platforms()
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
