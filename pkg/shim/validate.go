package shim

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/govalidator"
)

var validator = govalidator.New()

// Violation describes one failed check.
type Violation struct {
	Location string
	Field    string
	Check    string
	Message  string
}

// ValidationError is returned by Validate when a model fails its
// validate tags.
type ValidationError struct {
	Model      string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Location+": "+v.Message)
	}
	return fmt.Sprintf("%s failed validation: %s", e.Model, strings.Join(msgs, "; "))
}

// Validate checks the validate struct tags of v. Models without tags always
// pass; the permissive decoding in Decode is never affected.
func Validate(ctx context.Context, v any) error {
	result, err := validator.Validate(ctx, v)
	if err != nil {
		return fmt.Errorf("shim: validate %T: %w", v, err)
	}
	if result == nil || len(result.Violations) == 0 {
		return nil
	}

	verr := &ValidationError{Model: fmt.Sprintf("%T", v)}
	for _, violation := range result.Violations {
		verr.Violations = append(verr.Violations, Violation{
			Location: violation.Location,
			Field:    violation.Field,
			Check:    violation.Check,
			Message:  violation.Message,
		})
	}
	return verr
}
