package output

import (
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Nao-Mk2/awslogs/internal/model"
)

// RenderStreams renders a detail table of streams.
func RenderStreams(streams []model.StreamInfo) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Stream", "First event", "Last event", "Last ingestion"})
	for _, s := range streams {
		tw.AppendRow(table.Row{s.Name, millis(s.FirstEventTimestamp), millis(s.LastEventTimestamp), millis(s.LastIngestionTime)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft},
		{Number: 4, Align: text.AlignLeft},
	})
	return tw.Render()
}

// RenderGroups renders a detail table of groups.
func RenderGroups(groups []model.GroupInfo) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Group", "Created", "Retention (days)", "Stored bytes"})
	for _, g := range groups {
		retention := "-"
		if g.RetentionInDays > 0 {
			retention = strconv.Itoa(int(g.RetentionInDays))
		}
		tw.AppendRow(table.Row{g.Name, millis(g.CreationTime), retention, strconv.FormatInt(g.StoredBytes, 10)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// WriteTable writes a rendered table followed by a newline.
func WriteTable(w io.Writer, rendered string) error {
	_, err := io.WriteString(w, rendered+"\n")
	return err
}

func millis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(TimeLayout)
}
