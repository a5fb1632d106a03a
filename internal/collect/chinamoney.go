package collect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pbnjay/grate"

	"benritz/cgbfutures/internal/types"
)

var SourceChinaMoney = "ChinaMoney"

// ChinaMoneyCollector downloads ChinaMoney's bond info export and parses it
// with grate, the same spreadsheet library and download-to-tempfile flow the
// teacher's DMOCollector uses for the UK's DMO report.
type ChinaMoneyCollector struct {
	httpClient *http.Client
}

func NewChinaMoneyCollector() *ChinaMoneyCollector {
	return &ChinaMoneyCollector{httpClient: &http.Client{}}
}

func (c *ChinaMoneyCollector) Source() string {
	return SourceChinaMoney
}

func (c *ChinaMoneyCollector) Collect(ctx context.Context, date time.Time) (*CollectedDescriptors, error) {
	params := fmt.Sprintf("tradeDate=%04d-%02d-%02d", date.Year(), date.Month(), date.Day())
	reportURL := "https://www.chinamoney.com.cn/ags/ms/cm-u-bk-bond/BondInfoExport?" + url.QueryEscape(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reportURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get data: http %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "cgbfutures-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	wb, err := grate.Open(tmp.Name())
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	collected := NewCollectedDescriptors(SourceChinaMoney, date)

	sheets, err := wb.List()
	if err != nil {
		return nil, err
	}

	parsed := 0
	for _, sheetName := range sheets {
		sheet, err := wb.Get(sheetName)
		if err != nil {
			return nil, err
		}

		for sheet.Next() {
			row := sheet.Strings()
			cd, err := c.parseRow(row)
			if err == nil {
				collected.Add(cd)
				parsed++
			}
		}
	}

	if parsed == 0 {
		return nil, types.ErrDescriptorMissing
	}

	return collected, nil
}

const (
	cmColCode = 0
	cmColAbbr = 1
	cmColMkt = 2
	cmColCpType = 3
	cmColCpRate = 4
	cmColInstFreq = 5
	cmColCarryDate = 6
	cmColMaturityDate = 7
	cmColDayCount = 8
)

func (c *ChinaMoneyCollector) parseRow(row []string) (*CollectedDescriptor, error) {
	if len(row) <= cmColDayCount {
		return nil, ErrInvalidRow
	}

	code := strings.TrimSpace(row[cmColCode])
	if code == "" {
		return nil, ErrInvalidRow
	}

	b := &types.Bond{
		BondCode: code,
		Abbr:     strings.TrimSpace(row[cmColAbbr]),
		ParValue: 100,
	}
	cd := &CollectedDescriptor{Bond: b}

	switch strings.TrimSpace(row[cmColMkt]) {
	case "IB", "银行间":
		b.Mkt = types.IB
	case "SSE", "上交所":
		b.Mkt = types.SSE
	case "SZE", "深交所":
		b.Mkt = types.SZE
	default:
		b.Mkt = types.IB
	}

	b.CpType = types.CouponBear
	b.InterestType = types.Fixed
	b.DayCount = types.ActAct

	if v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(row[cmColCpRate]), "%"), 64); err == nil {
		b.CpRate1st = v / 100
	} else {
		cd.SetError(ErrInvalidRow)
	}

	if v, err := strconv.Atoi(strings.TrimSpace(row[cmColInstFreq])); err == nil {
		b.InstFreq = v
	} else {
		cd.SetError(ErrInvalidRow)
	}

	if d, err := types.ParseDate(strings.TrimSpace(row[cmColCarryDate])); err == nil {
		b.CarryDate = d
	} else {
		cd.SetError(ErrInvalidRow)
	}

	if d, err := types.ParseDate(strings.TrimSpace(row[cmColMaturityDate])); err == nil {
		b.MaturityDate = d
	} else {
		cd.SetError(ErrInvalidRow)
	}

	return cd, nil
}
