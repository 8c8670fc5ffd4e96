package monitor

import (
	"fmt"
	"sort"
	"strings"

	"fundarb/internal/domain/model"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

// Formatter 终端输出格式化
// 实时行显示各所标记价, 快照块显示套利机会排行
type Formatter struct {
	RateThreshold float64
}

func NewFormatter(threshold float64) *Formatter {
	return &Formatter{RateThreshold: threshold}
}

// RenderLive 单行实时标记价, \r 覆盖刷新
func (f *Formatter) RenderLive(st *State) string {
	var sb strings.Builder
	sb.WriteString("\r")
	sb.WriteString(colorize("[FUNDARB] ", ansiDim))

	for i, coin := range st.Tokens() {
		if i > 0 {
			sb.WriteString(colorize("  ||  ", ansiDim))
		}
		sb.WriteString(coin)

		prices := st.ExchangePrices(coin)
		exchanges := make([]string, 0, len(prices))
		for ex := range prices {
			exchanges = append(exchanges, ex)
		}
		sort.Strings(exchanges)

		for _, ex := range exchanges {
			ps := prices[ex]
			px := "--"
			if ps.seen && ps.str != "" {
				px = ps.str
			}
			col := ansiYellow
			if ps.parse {
				switch ps.dir {
				case DirUp:
					col = ansiGreen
				case DirDown:
					col = ansiRed
				}
			}
			sb.WriteString(" ")
			sb.WriteString(colorize(strings.ToUpper(ex[:1])+":"+px, col))
		}
	}

	sb.WriteString(ansiClearEOL)
	return sb.String()
}

// RenderOpportunities 快照块: 每个机会一行, 费率差超过阈值标绿
func (f *Formatter) RenderOpportunities(snap *model.Snapshot, top int) []string {
	opps := snap.Opportunities
	if top > 0 && len(opps) > top {
		opps = opps[:top]
	}

	lines := make([]string, 0, len(opps)+1)
	lines = append(lines, fmt.Sprintf("funding arbitrage: %d tokens, %d opportunities",
		len(snap.FundingRates), len(snap.Opportunities)))

	for i, opp := range opps {
		line := fmt.Sprintf("#%-2d %-8s long %-8s %+.4f%%  short %-8s %+.4f%%  diff %.4f%%",
			i+1, opp.BaseToken,
			opp.LongExchange, opp.LongRate*100,
			opp.ShortExchange, opp.ShortRate*100,
			opp.RateDifference*100)
		if opp.RateDifference >= f.RateThreshold {
			line = colorize(line, ansiGreen)
		}
		lines = append(lines, line)
	}

	if len(opps) == 0 {
		lines = append(lines, colorize("no opportunities above threshold", ansiDim))
	}
	return lines
}
