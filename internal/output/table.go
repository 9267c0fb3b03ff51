package output

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/stationlink/stationlink/internal/servers"
	"github.com/stationlink/stationlink/internal/topic"
)

// TableFormatter renders results as an ASCII table, or as a Markdown table
// when Markdown is set.
type TableFormatter struct {
	Markdown bool
}

// FormatServers renders one row per server.
func (f *TableFormatter) FormatServers(list []servers.Server) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Server", "Status", "Players", "Map", "Round", "Duration", "State", "Alert"})

	online := 0
	for _, s := range list {
		if s.Round == nil {
			t.AppendRow(table.Row{s.Name, string(s.State), "", "", "", "", "", s.ErrorMessage})
			continue
		}
		online++
		t.AppendRow(table.Row{
			s.Name,
			string(s.State),
			s.Players,
			s.Map,
			s.RoundID,
			formatDuration(s.RoundDuration),
			s.GameState.String(),
			s.SecurityLevel.String(),
		})
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d online", online, len(list)), "", "", "", "", "", ""})

	return f.render(t), nil
}

// FormatStatus renders a status record as key/value rows.
func (f *TableFormatter) FormatStatus(address string, status *topic.Status) (string, error) {
	if status == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(address)
	t.AppendHeader(table.Row{"Field", "Value"})

	rows := []table.Row{
		{"version", status.Version},
		{"map", status.MapName},
		{"round_id", status.RoundID},
		{"players", status.Players},
		{"admins", status.Admins},
		{"gamestate", status.GameState.String()},
		{"security_level", status.SecurityLevel.String()},
		{"round_duration", formatDuration(status.RoundDuration)},
		{"shuttle_mode", status.ShuttleMode.String()},
		{"shuttle_timer", formatDuration(status.ShuttleTimer)},
		{"time_dilation", fmt.Sprintf("%.1f%% (avg %.1f%%)", status.TimeDilationCurrent, status.TimeDilationAvg)},
		{"popcap", fmt.Sprintf("%d/%d/%d", status.SoftPopcap, status.HardPopcap, status.ExtremePopcap)},
		{"revision", status.Revision},
		{"public_address", status.PublicAddress},
		{"respawn", strconv.FormatBool(status.Respawn)},
		{"enter", strconv.FormatBool(status.Enter)},
		{"bunkered", strconv.FormatBool(status.Bunkered)},
		{"interviews", strconv.FormatBool(status.Interviews)},
	}
	for _, row := range rows {
		t.AppendRow(row)
	}

	return f.render(t), nil
}

func (f *TableFormatter) render(t table.Writer) string {
	if f.Markdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}

// formatDuration renders whole seconds as h:mm:ss.
func formatDuration(seconds uint32) string {
	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
