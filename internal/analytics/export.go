package analytics

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/retailpoint/retailpoint/internal/sales"
)

// WriteSalesCSV serialises the joined sale history to CSV.
func WriteSalesCSV(w io.Writer, rows []sales.SaleDetail) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Date", "Buyer", "Product", "Category", "Quantity", "Total"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.Date.Format(time.RFC3339),
			row.BuyerName,
			row.ProductName,
			row.CategoryName,
			strconv.Itoa(row.Quantity),
			formatFloat(row.TotalPrice),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
