// Package report turns a session's accumulated results into an xlsx report.
package report

import (
	"fmt"
	"sort"

	"github.com/maruel/natural"
	"github.com/xuri/excelize/v2"

	"github.com/GlebZemlyanikin/RowingModel/internal/apperr"
	"github.com/GlebZemlyanikin/RowingModel/internal/models"
	"github.com/GlebZemlyanikin/RowingModel/internal/reftable"
	"github.com/GlebZemlyanikin/RowingModel/internal/timeutil"
)

const sheetName = "Отчёт"

// ErrNoResults is returned when the session holds nothing to report.
var ErrNoResults = &apperr.Error{
	Message: "the session has no results to export",
}

// Exporter generates xlsx reports from finished sessions.
type Exporter struct{}

// NewExporter returns a report exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

type attempt struct {
	displayTime string
	elapsed     float64
	percent     float64
}

type subjectRow struct {
	name     string
	attempts []attempt
}

// groupResults groups results by subject name, recomputing every percentage
// from the stored raw inputs. The stored percentage is only a display cache
// and may be stale if the last result's elapsed time was edited in place.
func groupResults(results []models.Result) []subjectRow {
	byName := make(map[string][]attempt)

	for _, res := range results {
		byName[res.Name] = append(byName[res.Name], attempt{
			displayTime: timeutil.FormatRaceTime(res.ElapsedTime),
			elapsed:     res.ElapsedTime,
			percent: reftable.Percentage(
				res.Baseline, res.Distance, res.ElapsedTime,
			),
		})
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}

	sort.Sort(natural.StringSlice(names))

	rows := make([]subjectRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, subjectRow{name: name, attempts: byName[name]})
	}

	return rows
}

// Generate renders the session report and returns the xlsx file contents.
func (e *Exporter) Generate(sess models.Session) ([]byte, error) {
	if len(sess.Results) == 0 {
		return nil, ErrNoResults
	}

	rows := groupResults(sess.Results)

	maxAttempts := 0
	for _, row := range rows {
		if len(row.attempts) > maxAttempts {
			maxAttempts = len(row.attempts)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	err := f.SetSheetName("Sheet1", sheetName)
	if err != nil {
		return nil, err
	}

	header := []interface{}{"Спортсмен"}
	for i := 1; i <= maxAttempts; i++ {
		header = append(
			header,
			fmt.Sprintf("Заезд %d — время", i),
			fmt.Sprintf("Заезд %d — %%", i),
		)
	}

	header = append(header, "Среднее время", "Средний %")

	err = f.SetSheetRow(sheetName, "A1", &header)
	if err != nil {
		return nil, err
	}

	var (
		totalAttempts int
		totalPercent  float64
	)

	for i, row := range rows {
		cells := []interface{}{row.name}

		var sumElapsed, sumPercent float64

		for _, a := range row.attempts {
			cells = append(cells, a.displayTime, a.percent)
			sumElapsed += a.elapsed
			sumPercent += a.percent
		}

		// Ragged rows: subjects with fewer attempts get blank cells so the
		// average columns stay aligned.
		for j := len(row.attempts); j < maxAttempts; j++ {
			cells = append(cells, "", "")
		}

		n := float64(len(row.attempts))
		cells = append(
			cells,
			timeutil.FormatRaceTime(sumElapsed/n),
			timeutil.Round2(sumPercent/n),
		)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}

		err = f.SetSheetRow(sheetName, cell, &cells)
		if err != nil {
			return nil, err
		}

		totalAttempts += len(row.attempts)
		totalPercent += sumPercent
	}

	// Flat average over every attempt of every subject, not an average of
	// per-subject averages.
	summary := [][]interface{}{
		{},
		{"Спортсменов", len(rows)},
		{"Заездов", totalAttempts},
		{"Средний % по всем заездам", timeutil.Round2(totalPercent / float64(totalAttempts))},
	}

	for i, cells := range summary {
		if len(cells) == 0 {
			continue
		}

		cell, err := excelize.CoordinatesToCellName(1, len(rows)+2+i)
		if err != nil {
			return nil, err
		}

		row := cells

		err = f.SetSheetRow(sheetName, cell, &row)
		if err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
