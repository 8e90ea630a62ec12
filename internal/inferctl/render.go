package inferctl

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"inferd/pkg/types"
)

// renderStatus prints the status report as an aligned table followed by a
// one-line usage summary.
func renderStatus(w io.Writer, st types.StatusResponse) {
	now := time.Now()
	var data [][]string
	for _, m := range st.Models {
		task := string(m.TaskType)
		if task == "" {
			task = "-"
		}
		data = append(data, []string{
			m.ModelID,
			task,
			string(m.State),
			fmtVRAM(m.VRAMMB),
			fmtLastUsed(m.LastUsed, now),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"MODEL", "TASK", "STATE", "VRAM", "LAST USED"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	fmt.Fprintf(w, "\nvram: %.1f%%    loads: %d    evictions: %d\n",
		st.VRAMUsagePercent, st.LoadsTotal, st.EvictionsTotal)
	if len(st.ActiveDownloads) > 0 {
		fmt.Fprintf(w, "downloading: %s\n", strings.Join(st.ActiveDownloads, ", "))
	}
}

func fmtVRAM(mb float64) string {
	if mb <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f MB", mb)
}

// fmtLastUsed renders a unix timestamp relative to now. Zero means the
// model never served anything.
func fmtLastUsed(unix int64, now time.Time) string {
	if unix == 0 {
		return "never"
	}
	d := now.Sub(time.Unix(unix, 0))
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		n := int(d.Minutes())
		if n == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", n)
	case d < 24*time.Hour:
		n := int(d.Hours())
		if n == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", n)
	default:
		return time.Unix(unix, 0).Format("2006-01-02")
	}
}
