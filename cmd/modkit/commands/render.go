package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/ui/style"
)

const dryRunNotice = "Dry run completed - no changes made"

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(style.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return style.Header
			case col == 0:
				return style.Key
			default:
				return style.Cell
			}
		})
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// printResult writes the outcome table of a successful operation followed by its warnings.
func printResult(w io.Writer, title string, res *domain.Result) {
	t := newTable().Rows(
		[]string{"Path", res.ModulePath},
		[]string{"Version", orNone(res.Version)},
		[]string{"Namespace", orNone(res.Namespace)},
		[]string{"Install Path", res.InstallPath},
		[]string{"Backup", orNone(res.BackupPath)},
	)

	_, _ = fmt.Fprintln(w, style.Success(title))
	_, _ = fmt.Fprintln(w, t.String())
	for _, warning := range res.Warnings {
		_, _ = fmt.Fprintln(w, style.Warn(warning))
	}
	if res.DryRun {
		_, _ = fmt.Fprintln(w, dryRunNotice)
	}
}

func printReleases(w io.Writer, releases []domain.Release) {
	t := newTable().Headers("Tag", "Name", "Published", "")
	for _, r := range releases {
		published := ""
		if !r.PublishedAt.IsZero() {
			published = r.PublishedAt.UTC().Format(time.DateOnly)
		}
		pre := ""
		if r.Prerelease {
			pre = "PRE-RELEASE"
		}
		t.Row(r.TagName, r.Name, published, pre)
	}
	_, _ = fmt.Fprintln(w, t.String())
}

func printSnapshots(w io.Writer, snapshots []*domain.Snapshot) {
	t := newTable().Headers("Snapshot", "Label", "Created", "Size")
	for _, s := range snapshots {
		created := ""
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Local().Format(time.DateTime) + " (" + humanize.Time(s.CreatedAt) + ")"
		}
		t.Row(s.Path, s.Label, created, humanize.IBytes(uint64(max(s.SizeBytes, 0))))
	}
	_, _ = fmt.Fprintln(w, t.String())
}
