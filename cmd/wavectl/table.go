package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"audiowave/internal/models"
)

var videoHeaders = []string{"Public ID", "Size", "Duration", "Created", "URL"}

func renderVideos(items []models.PublishedResource, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(videoHeaders))
	for i, h := range videoHeaders {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, v := range items {
		tw.AppendRow(table.Row{
			v.PublicID,
			humanize.Bytes(uint64(max(v.Bytes, 0))),
			formatDuration(v.Duration),
			formatCreated(v.CreatedAt, now),
			v.SecureURL,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func renderDeleteResult(res models.DeleteResult, order []string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Public ID", "Status"})
	for _, id := range order {
		status, ok := res.Deleted[id]
		if !ok {
			continue
		}
		tw.AppendRow(table.Row{id, strings.ReplaceAll(status, "_", " ")})
	}
	return tw.Render()
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func formatCreated(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
