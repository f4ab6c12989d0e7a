package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/apache/arrow/go/v17/arrow/array"

	"parquet_batch/batch"
	"parquet_batch/footer"
	"parquet_batch/schema"
)

func printMetadata(out io.Writer, meta *footer.FileMetadata, sch *schema.Schema) {
	fmt.Fprintln(out, "Version:", meta.Version)
	fmt.Fprintln(out, "Created By:", meta.CreatedBy)
	fmt.Fprintln(out, "Num Rows:", meta.NumRows)
	fmt.Fprintln(out, "Number of RowGroups:", meta.NumRowGroups())
	fmt.Fprintln(out, "Number of Columns:", sch.Len())

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Schema ===")
	for _, col := range sch.Columns {
		fmt.Fprintf(out, "%d. %s (type: %s", col.Index, col.Name, col.Physical)
		if col.Logical != "" {
			fmt.Fprintf(out, "/%s", col.Logical)
		}
		fmt.Fprintf(out, ", max definition level: %d)\n", col.MaxDefinitionLevel)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Row Groups ===")
	for i, rg := range meta.RowGroups {
		fmt.Fprintf(out, "%d. rows: %d, total byte size: %d\n", i, rg.NumRows, rg.TotalByteSize)
	}
}

// printBatch writes up to limit rows of b as a tab-aligned table, each line
// prefixed by indent, and returns the number of rows written. Columns that
// could not be decoded print as N/A.
func printBatch(w io.Writer, b *batch.RecordBatch, indent string, limit int) (int, error) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%s", indent)
	for _, col := range b.Schema.Columns {
		fmt.Fprintf(tw, "%s\t", col.Name)
	}
	fmt.Fprintf(tw, "\n%s", indent)
	for range b.Schema.Columns {
		fmt.Fprintf(tw, "---\t")
	}
	fmt.Fprintf(tw, "\n")

	rows := int(b.NumRows)
	if rows > limit {
		rows = limit
	}
	for i := 0; i < rows; i++ {
		fmt.Fprintf(tw, "%s", indent)
		for _, c := range b.Columns {
			fmt.Fprintf(tw, "%s\t", formatValue(c, i))
		}
		fmt.Fprintf(tw, "\n")
	}
	return rows, tw.Flush()
}

func formatValue(c batch.ColumnArray, i int) string {
	if c.Err != nil {
		return "N/A"
	}
	if c.Values.IsNull(i) {
		return "NULL"
	}
	switch arr := c.Values.(type) {
	case *array.Float32:
		return fmt.Sprint(arr.Value(i))
	case *array.Float64:
		return fmt.Sprint(arr.Value(i))
	case *array.FixedSizeBinary:
		return hex.EncodeToString(arr.Value(i))
	default:
		return c.Values.ValueStr(i)
	}
}
