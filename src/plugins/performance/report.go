package performance

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Report is the end-of-run summary. The zero value of every field is a
// defined sentinel (no NaN propagation from empty runs).
type Report struct {
	StartAt        time.Time     `json:"startAt"`
	EndAt          time.Time     `json:"endAt"`
	Timespan       time.Duration `json:"timespan"`
	StartBalance   float64       `json:"startBalance"`
	FinalBalance   float64       `json:"finalBalance"`
	TotalPnl       float64       `json:"totalPnl"`
	TotalReturnPct float64       `json:"totalReturnPct"`
	Trades         int           `json:"trades"`
	Wins           int           `json:"wins"`
	Losses         int           `json:"losses"`
	WinRatio       float64       `json:"winRatio"`
	MaxDrawdownPct float64       `json:"maxDrawdownPct"`
	SharpeRatio    float64       `json:"sharpeRatio"`
	ExposurePct    float64       `json:"exposurePct"`
	RiskFreeReturn float64       `json:"riskFreeReturn"`
}

func (r Report) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoFormatHeaders(false)

	table.Append([]string{"Start", r.StartAt.Format(time.RFC3339)})
	table.Append([]string{"End", r.EndAt.Format(time.RFC3339)})
	table.Append([]string{"Timespan", r.Timespan.String()})
	table.Append([]string{"Start balance", fmt.Sprintf("%.2f", r.StartBalance)})
	table.Append([]string{"Final balance", fmt.Sprintf("%.2f", r.FinalBalance)})
	table.Append([]string{"Total P&L", fmt.Sprintf("%.2f", r.TotalPnl)})
	table.Append([]string{"Total return", fmt.Sprintf("%.2f%%", r.TotalReturnPct)})
	table.Append([]string{"Trades", fmt.Sprintf("%d", r.Trades)})
	table.Append([]string{"Win ratio", fmt.Sprintf("%.2f", r.WinRatio)})
	table.Append([]string{"Max drawdown", fmt.Sprintf("%.2f%%", r.MaxDrawdownPct)})
	table.Append([]string{"Sharpe ratio", fmt.Sprintf("%.2f", r.SharpeRatio)})
	table.Append([]string{"Exposure", fmt.Sprintf("%.2f%%", r.ExposurePct)})

	table.Render()
}
