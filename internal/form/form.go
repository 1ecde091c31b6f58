// Package form holds input state for the expense and setup forms as single
// values updated through Apply, so validation sees one consistent snapshot.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"finplan/internal/core"
	"finplan/internal/records"
)

// DefaultMonth preselects the month dropdown of a fresh expense form.
const DefaultMonth = core.March

// ValidationError maps field names to messages. It unwraps to records.ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return records.ErrValidation }

// Field returns the message for name, or "".
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func amountMessage(raw string, err error) string {
	if strings.TrimSpace(raw) == "" {
		return "required"
	}
	if errors.Is(err, core.ErrInvalidAmount) {
		return "must be a non-negative number"
	}
	return err.Error()
}

func parseAmount(raw string) (core.Money, error) {
	m, err := core.ParseMoney(raw)
	if err != nil {
		return core.Money{}, fmt.Errorf("%q: %w", raw, err)
	}
	return m, nil
}
