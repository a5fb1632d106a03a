package collect

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"benritz/cgbfutures/internal/types"
)

var SourceCFFEX = "CFFEX"

// CFFEXCollector scrapes the China Financial Futures Exchange's published
// deliverable-bond table for outright T-bond futures contracts. Grounded on
// the teacher's DividendDataCollector: a colly collector keyed off a single
// table's row/column layout, with per-field parse failures attached to the
// row rather than aborting the whole scrape.
type CFFEXCollector struct {
	url string
}

func NewCFFEXCollector() *CFFEXCollector {
	return &CFFEXCollector{url: "http://www.cffex.com.cn/jzyxq/"}
}

func (c *CFFEXCollector) Source() string {
	return SourceCFFEX
}

const (
	cffexColCode = iota
	cffexColAbbr
	cffexColCpRate
	cffexColInstFreq
	cffexColCarryDate
	cffexColMaturityDate
	cffexColParValue
)

func (c *CFFEXCollector) Collect(ctx context.Context, date time.Time) (*CollectedDescriptors, error) {
	x := colly.NewCollector()

	collected := NewCollectedDescriptors(SourceCFFEX, date)

	x.OnHTML("table.deliverable-bonds tr", func(e *colly.HTMLElement) {
		cd := c.readRow(e)
		if cd != nil {
			collected.Add(cd)
		}
	})

	if err := x.Visit(c.url); err != nil {
		return nil, err
	}

	if len(collected.Bonds) == 0 && len(collected.Failures) == 0 {
		return nil, types.ErrDescriptorMissing
	}

	return collected, nil
}

func (c *CFFEXCollector) readRow(e *colly.HTMLElement) *CollectedDescriptor {
	b := &types.Bond{
		Mkt:          types.IB,
		CpType:       types.CouponBear,
		InterestType: types.Fixed,
		DayCount:     types.ActAct,
	}
	cd := &CollectedDescriptor{Bond: b}

	e.ForEach("td", func(col int, el *colly.HTMLElement) {
		text := strings.TrimSpace(el.Text)

		switch col {
		case cffexColCode:
			b.BondCode = text
			if b.BondCode == "" {
				cd.SetError(ErrInvalidRow)
			}
		case cffexColAbbr:
			b.Abbr = text
		case cffexColCpRate:
			s := strings.TrimSuffix(text, "%")
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				b.CpRate1st = v / 100
			} else {
				cd.SetError(ErrInvalidRow)
			}
		case cffexColInstFreq:
			if v, err := strconv.Atoi(text); err == nil {
				b.InstFreq = v
			} else {
				cd.SetError(ErrInvalidRow)
			}
		case cffexColCarryDate:
			if d, err := types.ParseDate(text); err == nil {
				b.CarryDate = d
			} else {
				cd.SetError(ErrInvalidRow)
			}
		case cffexColMaturityDate:
			if d, err := types.ParseDate(text); err == nil {
				b.MaturityDate = d
			} else {
				cd.SetError(ErrInvalidRow)
			}
		case cffexColParValue:
			if v, err := strconv.ParseFloat(text, 64); err == nil {
				b.ParValue = v
			} else {
				b.ParValue = 100
			}
		}
	})

	if cd.Err == nil && b.BondCode == "" {
		return nil
	}

	return cd
}
