package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/donaldgifford/amul-stock-tracker/internal/api/handlers"
	"github.com/donaldgifford/amul-stock-tracker/pkg/picker"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printRunResult(w io.Writer, res *domain.RunResult) error {
	tw := newTabWriter(w)
	tw.writef("Run:\t%s\n", res.RunID)
	tw.writef("Pincode:\t%s\n", res.Pincode)
	tw.writef("Substore:\t%s\n", res.Substore)
	tw.writef("Listed:\t%d\n", res.Listed)
	tw.writef("Available:\t%d\n", res.Available)
	tw.writef("Duration:\t%s\n", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	tw.writef("Alerts:\t%d (notified %d)\n", len(res.Alerts), res.Notified)
	for i := range res.Alerts {
		p := &res.Alerts[i].Product
		tw.writef("  back in stock:\t%s\t₹%.2f\tqty %d\n", p.DisplayName(), p.Price, p.InventoryQuantity)
	}
	for _, f := range res.NotifyFailure {
		tw.writef("  notify failed:\t%s\t%s\n", f.ProductID, truncate(f.Error, 60))
	}
	return tw.finish()
}

func printStatus(w io.Writer, body *handlers.StatusBody) error {
	tw := newTabWriter(w)
	tw.writef("Pincode: %s  Available: %d/%d\n\n", body.Pincode, body.Available, body.Total)
	tw.writef("ID\tLABEL\tSTATUS\tTARGETED\n")
	for i := range body.Products {
		p := &body.Products[i]
		tw.writef("%s\t%s\t%s\t%v\n", p.ID, truncate(p.Label, 40), p.Status, p.Targeted)
	}
	return tw.finish()
}

func printPickerItems(w io.Writer, items []picker.Item) error {
	tw := newTabWriter(w)
	for i := range items {
		box := "[ ]"
		if items[i].Checked {
			box = "[x]"
		}
		tw.writef("%s\t%s\t%s\t%s\n", box, items[i].Label, items[i].Status, items[i].Key)
	}
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
