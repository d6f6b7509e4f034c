package codec

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	saf "github.com/reoring/saf"
)

// SummarySheet is the first sheet of an XLSX export: one row per histogram.
const SummarySheet = "Histograms"

const maxSheetName = 31

var summaryHeader = []any{"sheet", "source", "name", "dialect", "nbins", "xmin", "xmax", "regions", "underflow", "overflow"}

// EncodeXLSX writes a workbook with a summary sheet and one sheet per
// histogram holding its bin table and a column chart of the regular bins.
func EncodeXLSX(ctx context.Context, w io.Writer, docs []Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &summaryHeader); err != nil {
		return err
	}

	used := map[string]bool{}
	row := 2
	for _, d := range docs {
		for _, h := range d.Histograms {
			if err := ctx.Err(); err != nil {
				return err
			}
			sheet := sheetName(h.Name(), used)
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("sheet %q: %w", sheet, err)
			}
			summary := []any{sheet, d.Source, h.Name(), d.Dialect.String(), h.NBins(), h.XMin(), h.XMax(),
				strings.Join(h.Regions(), " "), h.Underflow(), h.Overflow()}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(SummarySheet, cell, &summary); err != nil {
				return err
			}
			row++
			if err := writeBins(f, sheet, h.Name(), binTable(h)); err != nil {
				return fmt.Errorf("sheet %q: %w", sheet, err)
			}
		}
	}
	f.SetActiveSheet(0)
	_, err := f.WriteTo(w)
	return err
}

type table struct {
	header []any
	rows   [][]any
}

// binTable lays out the regular bins with their edges. Parallel arrays get
// a column each.
func binTable(h saf.Histogram) table {
	t := table{header: []any{"bin", "low", "high", "value"}}
	errs, neg := h.Errors(), h.ValuesNeg()
	if errs != nil {
		t.header = append(t.header, "error")
	}
	if neg != nil {
		t.header = append(t.header, "value_neg")
	}
	vals := h.Values()
	width := h.BinWidth()
	for i := 1; i <= h.NBins(); i++ {
		low := h.XMin() + float64(i-1)*width
		r := []any{i, low, low + width, vals[i]}
		if errs != nil {
			r = append(r, errs[i])
		}
		if neg != nil {
			r = append(r, neg[i])
		}
		t.rows = append(t.rows, r)
	}
	return t
}

func writeBins(f *excelize.File, sheet, title string, t table) error {
	if err := f.SetSheetRow(sheet, "A1", &t.header); err != nil {
		return err
	}
	for i := range t.rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &t.rows[i]); err != nil {
			return err
		}
	}
	last := len(t.rows) + 1
	ref := "'" + strings.ReplaceAll(sheet, "'", "''") + "'!"
	return f.AddChart(sheet, "H2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       ref + "$D$1",
			Categories: ref + "$B$2:$B$" + strconv.Itoa(last),
			Values:     ref + "$D$2:$D$" + strconv.Itoa(last),
		}},
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "none"},
	})
}

// sheetName derives a unique, valid worksheet name from a histogram name.
func sheetName(name string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	base = strings.Trim(base, "'")
	if base == "" {
		base = "histogram"
	}
	base = truncate(base, maxSheetName)
	cand := base
	for n := 2; used[strings.ToLower(cand)] || strings.EqualFold(cand, SummarySheet); n++ {
		suffix := "~" + strconv.Itoa(n)
		cand = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(cand)] = true
	return cand
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
