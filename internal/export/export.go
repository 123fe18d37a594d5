// Package export renders the canonical catalog as an XLSX workbook, one
// sheet per entity, for researchers who work outside the review client.
package export

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/item-teatro/comedia-cli/internal/store"
)

// Catalog writes every work, performance, place and company to an XLSX
// workbook at path.
func Catalog(ctx context.Context, st store.Store, path string) error {
	f := xlsx.NewFile()

	works, err := st.ListWorks(ctx)
	if err != nil {
		return err
	}
	if err := addSheet(f, "Obras",
		[]string{"Título", "Autor", "Género", "Títulos alternativos"},
		len(works), func(i int) []string {
			w := works[i]
			return []string{w.Title, w.Author, w.Genre, strings.Join(w.AlternativeTitles, "; ")}
		}); err != nil {
		return err
	}

	performances, err := st.ListPerformances(ctx)
	if err != nil {
		return err
	}
	if err := addSheet(f, "Representaciones",
		[]string{"Obra", "Fecha", "Fecha verbatim", "Precisión", "Compañía", "Lugar", "Mecenas", "Público", "Fuente", "Página"},
		len(performances), func(i int) []string {
			p := performances[i]
			return []string{
				p.WorkTitle, p.Date.ISO, p.Date.Verbatim, string(p.Date.Precision),
				p.Company, p.Venue, p.Patron, p.Audience,
				string(p.Provenance.Source), strconv.Itoa(p.Provenance.Page),
			}
		}); err != nil {
		return err
	}

	places, err := st.ListPlaces(ctx)
	if err != nil {
		return err
	}
	if err := addSheet(f, "Lugares",
		[]string{"Nombre", "Tipo", "Ciudad", "Región", "País", "Pendiente"},
		len(places), func(i int) []string {
			p := places[i]
			return []string{p.Name, string(p.Type), p.City, p.Region, p.Country, boolES(p.Pending)}
		}); err != nil {
		return err
	}

	companies, err := st.ListCompanies(ctx)
	if err != nil {
		return err
	}
	if err := addSheet(f, "Compañías",
		[]string{"Nombre", "Director"},
		len(companies), func(i int) []string {
			c := companies[i]
			return []string{c.Name, c.Director}
		}); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	zap.L().Info("catalog exported",
		zap.String("path", path),
		zap.Int("works", len(works)),
		zap.Int("performances", len(performances)),
		zap.Int("places", len(places)),
		zap.Int("companies", len(companies)))
	return nil
}

func addSheet(f *xlsx.File, name string, header []string, n int, rowAt func(int) []string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}
	writeRow(sheet, header)
	for i := 0; i < n; i++ {
		writeRow(sheet, rowAt(i))
	}
	return nil
}

func writeRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func boolES(b bool) string {
	if b {
		return "sí"
	}
	return "no"
}
