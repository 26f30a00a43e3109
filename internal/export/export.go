// Package export writes stored ads to spreadsheet files.
package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/RobertM05/car-sniper/internal/model"
)

var header = []string{"id", "source", "make", "model", "title", "price_eur", "year", "km", "link", "image", "last_seen", "active"}

func adRow(ad model.StoredAd) []string {
	return []string{
		ad.ID,
		ad.Source,
		ad.Make,
		ad.Model,
		ad.Title,
		strconv.Itoa(ad.Price),
		strconv.Itoa(ad.Year),
		strconv.Itoa(ad.KM),
		ad.Link,
		ad.Image,
		ad.LastSeen.Format("2006-01-02 15:04:05"),
		strconv.FormatBool(ad.Active),
	}
}

// WriteXLSX writes the ads to an Excel workbook at path.
func WriteXLSX(path string, ads []model.StoredAd) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("ads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	headerRow := sheet.AddRow()
	for _, h := range header {
		headerRow.AddCell().SetString(h)
	}

	for _, ad := range ads {
		row := sheet.AddRow()
		for _, v := range adRow(ad) {
			row.AddCell().SetString(v)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

// WriteCSV writes the ads to a CSV file at path.
func WriteCSV(path string, ads []model.StoredAd) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, ad := range ads {
		if err := w.Write(adRow(ad)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush")
	}
	return nil
}
