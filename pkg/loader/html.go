package loader

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/xhad/walle/internal/models"
)

type TableLoaderConfig struct {
	URL       string
	RateLimit float64 // requests per second
	Timeout   time.Duration
}

// TableLoader pulls the ledger from a published HTML rate-history page.
// The first table whose header carries all required columns is used.
type TableLoader struct {
	config  TableLoaderConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewTableWithConfig(config TableLoaderConfig) *TableLoader {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}

	return &TableLoader{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func (l *TableLoader) Load(ctx context.Context) ([]models.Record, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, &models.DataSourceError{Source: l.config.URL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.config.URL, nil)
	if err != nil {
		return nil, &models.DataSourceError{Source: l.config.URL, Err: err}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &models.DataSourceError{Source: l.config.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.DataSourceError{
			Source: l.config.URL,
			Err:    fmt.Errorf("received status code %d", resp.StatusCode),
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &models.DataSourceError{Source: l.config.URL, Err: err}
	}

	records, err := l.extractTable(doc)
	if err != nil {
		return nil, &models.DataSourceError{Source: l.config.URL, Err: err}
	}

	return records, nil
}

func (l *TableLoader) extractTable(doc *goquery.Document) ([]models.Record, error) {
	var records []models.Record
	found := false

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		header, headerIsFirstRow := headerCells(table)
		cols, err := mapColumns(header)
		if err != nil {
			return true // not the ledger table, keep looking
		}

		found = true
		row := 0
		table.Find("tr").Each(func(i int, tr *goquery.Selection) {
			if headerIsFirstRow && i == 0 {
				return
			}
			cells := rowCells(tr)
			if len(cells) == 0 || isHeaderRow(tr) {
				return
			}
			records = append(records, recordFromRow(row, cells, cols))
			row++
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("no table with required columns found")
	}

	return records, nil
}

func headerCells(table *goquery.Selection) (header []string, firstRow bool) {
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		header = append(header, strings.TrimSpace(th.Text()))
	})
	if len(header) == 0 {
		// Some tables use a plain td row as the header
		table.Find("tr").First().Find("td").Each(func(_ int, td *goquery.Selection) {
			header = append(header, strings.TrimSpace(td.Text()))
		})
		firstRow = true
	}
	return header, firstRow
}

func rowCells(tr *goquery.Selection) []string {
	var cells []string
	tr.Find("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(td.Text()))
	})
	return cells
}

func isHeaderRow(tr *goquery.Selection) bool {
	return tr.Find("th").Length() > 0
}
