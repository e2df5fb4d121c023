// Package xlsx renders a monthly recap as an Excel workbook for payroll.
//
// The workbook has two sheets: "Semaines" with one row per ISO week and a
// month total row, and "Variables" with the allowance, absence and hours
// summaries.
package xlsx

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warp/site-timesheets/recap"
	"github.com/xuri/excelize/v2"
)

const (
	weeksSheet     = "Semaines"
	variablesSheet = "Variables"
)

var weekHeaders = []string{"Semaine", "Du", "Au", "Jours dans le mois", "Saisies", "Heures normales", "Heures supp.", "Total", "Total (décimal)", "Statut"}

var variableHeaders = []string{"Catégorie", "Type", "Nombre", "Valeur unitaire", "Total"}

// FileName is the attachment name used for a recap export.
func FileName(r *recap.MonthlyRecap) string {
	return fmt.Sprintf("recap_%d_%04d-%02d.xlsx", r.WorkerID, r.Year, int(r.Month))
}

// Recap writes the monthly recap workbook into a buffer.
func Recap(r *recap.MonthlyRecap) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("close recap workbook")
		}
	}()

	sheet := "Sheet1"
	row, err := writeTitle(f, sheet, r)
	if err != nil {
		return nil, errors.Wrap(err, "write recap title")
	}
	row, err = writeHeader(f, sheet, row, weekHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "write week header")
	}
	if _, err = writeWeeks(f, sheet, r, row); err != nil {
		return nil, errors.Wrap(err, "write week rows")
	}
	if err := f.SetSheetName(sheet, weeksSheet); err != nil {
		return nil, errors.Wrap(err, "rename week sheet")
	}

	if _, err := f.NewSheet(variablesSheet); err != nil {
		return nil, errors.Wrap(err, "create variables sheet")
	}
	row, err = writeHeader(f, variablesSheet, 0, variableHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "write variables header")
	}
	if _, err = writeVariables(f, variablesSheet, r, row); err != nil {
		return nil, errors.Wrap(err, "write variable rows")
	}

	return f.WriteToBuffer()
}

func writeTitle(f *excelize.File, sheet string, r *recap.MonthlyRecap) (int, error) {
	row := 1
	if err := writeColumn(f, sheet, 1, row, fmt.Sprintf("Récapitulatif ouvrier %d", r.WorkerID)); err != nil {
		return row, err
	}
	if err := writeColumn(f, sheet, 2, row, fmt.Sprintf("%04d-%02d", r.Year, int(r.Month))); err != nil {
		return row, err
	}
	validated := "non"
	if r.AllValidated {
		validated = "oui"
	}
	if err := writeColumn(f, sheet, 3, row, "Tout validé: "+validated); err != nil {
		return row, err
	}
	return row + 1, nil
}

func writeWeeks(f *excelize.File, sheet string, r *recap.MonthlyRecap, row int) (int, error) {
	if err := applyDataCellStyle(f, sheet, 1, row+1, len(weekHeaders), row+len(r.Weeks)+1); err != nil {
		return row, err
	}
	for _, w := range r.Weeks {
		row++
		values := []any{
			fmt.Sprintf("%d-W%02d", w.ISOYear, w.ISOWeek),
			w.Monday.String(),
			w.Sunday.String(),
			w.DaysInMonth,
			w.EntryCount,
			w.Normal.String(),
			w.Overtime.String(),
			w.Total.String(),
			w.TotalHours.InexactFloat64(),
			string(w.Status),
		}
		if err := writeRow(f, sheet, row, values); err != nil {
			return row, err
		}
	}

	row++
	total := []any{
		"Total mois", r.Period.From.String(), r.Period.To.String(), r.WorkedDays, r.EntryCount,
		r.Normal.String(), r.Overtime.String(), r.Total.String(), r.TotalHours.InexactFloat64(), string(r.Status),
	}
	return row, writeRow(f, sheet, row, total)
}

func writeVariables(f *excelize.File, sheet string, r *recap.MonthlyRecap, row int) (int, error) {
	for _, a := range r.Allowances {
		row++
		var unit any
		if a.UnitValue != nil {
			unit = a.UnitValue.InexactFloat64()
		}
		if err := writeRow(f, sheet, row, []any{"Indemnité", string(a.Type), a.Count, unit, a.Total.InexactFloat64()}); err != nil {
			return row, err
		}
	}
	for _, a := range r.Absences {
		row++
		if err := writeRow(f, sheet, row, []any{"Absence", string(a.Type), a.Days, nil, a.Total.String()}); err != nil {
			return row, err
		}
	}
	for _, h := range r.Hours {
		row++
		if err := writeRow(f, sheet, row, []any{"Heures", string(h.Type), h.Count, nil, h.Total.InexactFloat64()}); err != nil {
			return row, err
		}
	}
	return row, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		if err := writeColumn(f, sheet, i+1, row, v); err != nil {
			return err
		}
	}
	return nil
}
