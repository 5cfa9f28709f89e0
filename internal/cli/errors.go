package cli

import (
	"strings"

	"pulse/internal/cli/style"
	perrors "pulse/internal/errors"
)

// RenderError formats err for the terminal, adding a hint when retrying may help.
func RenderError(err error) string {
	var b strings.Builder
	b.WriteString(perrors.Describe(err))

	if perrors.IsRetryable(err) {
		b.WriteString("\n")
		b.WriteString(style.DimText.Render("This looks temporary. Try again in a moment."))
	} else if kind, ok := perrors.TransportKindOf(err); ok && kind == perrors.KindUnauthorized {
		b.WriteString("\n")
		b.WriteString(style.DimText.Render("Sign in with `pulse auth signin <user-id>`."))
	}
	return style.ErrorBox.Render(b.String())
}
