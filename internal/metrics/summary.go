package metrics

import "market-signal-lab/internal/domain"

// Summarize aggregates a user's backtests. WinRate is the percentage of
// backtests whose total return is positive.
func Summarize(results []*domain.BacktestResult) domain.BacktestSummary {
	var s domain.BacktestSummary
	if len(results) == 0 {
		return s
	}

	s.TotalBacktests = len(results)
	s.BestReturn = results[0].Results.TotalReturn
	s.WorstReturn = results[0].Results.TotalReturn

	sum := 0.0
	winning := 0
	for _, r := range results {
		ret := r.Results.TotalReturn
		sum += ret
		s.BestReturn = max(s.BestReturn, ret)
		s.WorstReturn = min(s.WorstReturn, ret)
		if ret > 0 {
			winning++
		}
		s.TotalTrades += r.Results.TotalTrades
	}

	s.AvgReturn = sum / float64(len(results))
	s.WinRate = float64(winning) / float64(len(results)) * 100
	return s
}
