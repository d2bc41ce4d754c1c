package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/nonplanar/pkg/domain"
)

// Report renders a job summary as markdown.
func Report(job *domain.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s `%s`\n\n", job.Kind, job.ID)
	if job.Transform != "" {
		fmt.Fprintf(&b, "Transform: **%s**\n\n", job.Transform)
	}
	if job.Status == domain.StatusFailed {
		fmt.Fprintf(&b, "> failed: %s\n\n", job.Error)
	}

	b.WriteString("| metric | value |\n|---|---|\n")
	row := func(name string, v any) {
		fmt.Fprintf(&b, "| %s | %v |\n", name, v)
	}
	st := job.Stats
	switch job.Kind {
	case domain.KindResegment, domain.KindReproject, domain.KindUnproject:
		row("lines in", st.Lines)
		row("motion moves", st.Motion)
		row("selected", st.Selected)
		row("changed", st.Changed)
		row("lines out", st.Emitted)
	case domain.KindRefine, domain.KindMesh, domain.KindLayer:
		row("triangles", st.Triangles)
		row("splits", st.Splits)
	case domain.KindCheck:
		row("samples", st.Samples)
		row("max error", fmt.Sprintf("%.3g", st.MaxError))
	}
	row("duration", job.Duration)
	return b.String()
}
