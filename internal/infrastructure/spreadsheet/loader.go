// Package spreadsheet reads the production planning workbook that maps lot
// numbers to product names, one tab per year.
package spreadsheet

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// Column headers recognized on row 1 of each tab.  The workbook is
// maintained by the planning team in Portuguese.
var (
	lotHeaders     = []string{"LOTE", "LOT"}
	productHeaders = []string{"MASSA", "PRODUTO", "PRODUCT"}
	variantHeaders = []string{"EQUIPAMENTO", "EQUIP", "VARIANTE"}
)

// fallbackProductCol is used when no product header is found; older tabs
// carry the product in the third column without a header.
const fallbackProductCol = 2

// minLotTextLen filters out sheet artifacts (stray one and two character
// cells) that are never real lots.
const minLotTextLen = 3

// Loader reads lot entries out of one workbook.
type Loader struct {
	path string
	tabs []string
	log  logging.Logger
}

// NewLoader builds a loader for the workbook at path, reading the given
// tabs in order.  Entries from later tabs override earlier ones so the most
// recent year wins for recycled lot numbers.
func NewLoader(path string, tabs []string, log logging.Logger) *Loader {
	return &Loader{path: path, tabs: tabs, log: log}
}

// LoadLotMap parses every configured tab into a single lot map.
func (l *Loader) LoadLotMap() (map[string]reference.LotEntry, error) {
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSheetParseFailed, "opening planning workbook").
			WithDetail(l.path)
	}
	defer f.Close()

	out := make(map[string]reference.LotEntry)
	for _, tab := range l.tabs {
		rows, err := f.GetRows(tab)
		if err != nil {
			l.log.Warn("skipping unreadable workbook tab",
				logging.String("tab", tab), logging.Err(err))
			continue
		}
		added := l.parseTab(tab, rows, out)
		l.log.Info("parsed workbook tab",
			logging.String("tab", tab),
			logging.Int("lots", added))
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeLotMapUnavailable, "workbook yielded no lot entries").
			WithDetail(l.path)
	}
	return out, nil
}

func (l *Loader) parseTab(tab string, rows [][]string, out map[string]reference.LotEntry) int {
	if len(rows) < 2 {
		return 0
	}
	lotCol := findColumn(rows[0], lotHeaders)
	productCol := findColumn(rows[0], productHeaders)
	variantCol := findColumn(rows[0], variantHeaders)
	if lotCol < 0 {
		lotCol = 0
	}
	if productCol < 0 {
		productCol = fallbackProductCol
	}

	added := 0
	for _, row := range rows[1:] {
		lot := strings.ToUpper(strings.TrimSpace(cell(row, lotCol)))
		product := strings.ToUpper(strings.TrimSpace(cell(row, productCol)))
		if len(lot) < minLotTextLen || product == "" {
			continue
		}
		entry := reference.LotEntry{Product: product, Year: tab}
		if variantCol >= 0 {
			entry.Variant = variantLetter(cell(row, variantCol))
		}
		out[lot] = entry
		added++
	}
	return added
}

// variantLetter extracts the rheometer variant from an equipment cell like
// "REO A" or "B".
func variantLetter(v string) string {
	fields := strings.Fields(strings.ToUpper(v))
	if len(fields) == 0 {
		return ""
	}
	switch last := fields[len(fields)-1]; last {
	case "A", "B":
		return last
	}
	return ""
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToUpper(strings.TrimSpace(h))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
