package reporting

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const journalSheet = "Trades"

var journalHeader = []interface{}{
	"ID", "Symbol", "Direction", "Strategy", "Entry", "Exit", "Size", "Leverage",
	"PnL", "PnL %", "Commission", "Slippage", "Max PnL", "Min PnL",
	"Opened", "Closed", "Duration", "Exit Reason", "Result",
}

// WriteJournalXLSX writes the trade journal workbook to w.
func WriteJournalXLSX(w io.Writer, trades []Trade) error {
	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), journalSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}
	currencyStyle, err := fx.NewStyle(&excelize.Style{NumFmt: 7})
	if err != nil {
		return err
	}
	winStyle, err := fx.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "008000"}})
	if err != nil {
		return err
	}
	lossStyle, err := fx.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "FF0000"}})
	if err != nil {
		return err
	}

	if err := fx.SetSheetRow(journalSheet, "A1", &journalHeader); err != nil {
		return err
	}
	if err := fx.SetCellStyle(journalSheet, "A1", "S1", headerStyle); err != nil {
		return err
	}

	for i, t := range trades {
		row := i + 2
		result := "LOSS"
		if t.Won {
			result = "WIN"
		}
		values := []interface{}{
			t.ID, t.Symbol, t.Direction, t.Strategy, t.Entry, t.Exit, RoundCents(t.Size), t.Leverage,
			RoundCents(t.PnL), RoundCents(t.PnLPct), RoundCents(t.Commission), RoundCents(t.Slippage),
			RoundCents(t.MaxPnL), RoundCents(t.MinPnL),
			t.OpenedAt.Format("2006-01-02 15:04:05"), t.ClosedAt.Format("2006-01-02 15:04:05"),
			t.Duration, t.ExitReason, result,
		}

		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(journalSheet, cell, &values); err != nil {
			return err
		}

		pnlCell := fmt.Sprintf("I%d", row)
		if err := fx.SetCellStyle(journalSheet, pnlCell, pnlCell, currencyStyle); err != nil {
			return err
		}
		resultStyle := lossStyle
		if t.Won {
			resultStyle = winStyle
		}
		resultCell := fmt.Sprintf("S%d", row)
		if err := fx.SetCellStyle(journalSheet, resultCell, resultCell, resultStyle); err != nil {
			return err
		}
	}

	if err := fx.SetColWidth(journalSheet, "A", "S", 14); err != nil {
		return err
	}
	if err := fx.SetPanes(journalSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	_, err = fx.WriteTo(w)
	return err
}
