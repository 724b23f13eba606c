package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// FormatError renders err for a terminal. Validation errors get a header
// with their code and the offending field and value; anything else is
// printed as is.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var verr *builder.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	return formatValidationError(verr)
}

func formatValidationError(e *builder.ValidationError) string {
	var b strings.Builder

	errorColor := color.New(color.FgRed, color.Bold)
	errorColor.Fprintf(&b, "Error: ")
	fmt.Fprintf(&b, "%s\n", e.Code())

	if e.Field != "" {
		locationColor := color.New(color.FgCyan)
		locationColor.Fprintf(&b, "  --> ")
		fmt.Fprintf(&b, "%q\n", e.Field)
	}
	if e.Value != nil {
		fmt.Fprintf(&b, "  Got: %v\n", e.Value)
	}

	b.WriteString("\n  ")
	b.WriteString(e.Message)
	b.WriteString("\n")

	if hint := hintFor(e.Code()); hint != "" {
		b.WriteString("\n")
		helpColor := color.New(color.FgYellow, color.Bold)
		helpColor.Fprintf(&b, "  Help: ")
		fmt.Fprintf(&b, "%s\n", hint)
	}

	return b.String()
}

func hintFor(code string) string {
	switch code {
	case builder.CodeMissingOperator:
		return `write the operator after the field, e.g. "age >=" or "name ="`
	case builder.CodeUnsupportedOperator:
		return "supported operators: =, !=, <, <=, >, >=, in, not in, like, not like"
	case builder.CodeHeterogeneous:
		return "every record of a multi-row insert must list the same fields in the same order"
	case builder.CodeEmptyInList:
		return "remove the predicate or pass at least one value"
	case builder.CodeUnknownDialect:
		return "use standard, mysql, postgresql or mssql"
	}
	return ""
}
