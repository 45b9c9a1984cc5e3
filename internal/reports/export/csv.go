// Package export renders reports into downloadable formats.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/weavetrack/weavetrack/internal/reports"
)

const dateLayout = "2006-01-02"

// WriteLotRegisterCSV emits one line per lot-design allocation followed by a totals line.
func WriteLotRegisterCSV(w io.Writer, register reports.LotRegister) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Lot Number", "Lot Date", "Party", "Quality", "Status", "Bill Number",
		"Order Number", "Design", "Sets", "Ground Colors", "Pieces",
	}); err != nil {
		return err
	}
	for _, row := range register.Rows {
		if err := writer.Write([]string{
			row.LotNumber,
			row.LotDate.Format(dateLayout),
			row.PartyName,
			row.QualityName,
			row.Status,
			row.BillNumber,
			row.OrderNumber,
			row.DesignNumber,
			strconv.Itoa(row.AllocatedSets),
			strconv.Itoa(row.GroundColorsCount),
			strconv.Itoa(row.TotalPieces),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{
		"Total", "", "", "", "", "", "", "",
		strconv.Itoa(register.TotalSets), "", strconv.Itoa(register.TotalPieces),
	}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WritePartyWiseCSV emits outstanding designs grouped by party.
func WritePartyWiseCSV(w io.Writer, report reports.PartyWise) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Party", "Order Number", "Quality", "Design", "Remaining Sets", "Remaining Pieces", "Rate", "Value"}); err != nil {
		return err
	}
	for _, party := range report.Parties {
		for _, d := range party.Designs {
			if err := writer.Write([]string{
				party.PartyName,
				d.OrderNumber,
				d.QualityName,
				d.DesignNumber,
				strconv.Itoa(d.RemainingSets),
				strconv.Itoa(d.RemainingPieces),
				d.RatePerPiece.StringFixed(2),
				d.Value.StringFixed(2),
			}); err != nil {
				return err
			}
		}
	}
	if err := writer.Write([]string{"Total", "", "", "", "", strconv.Itoa(report.TotalPieces), "", report.TotalValue.StringFixed(2)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
