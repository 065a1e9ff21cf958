package calculator

import (
	"cloud.google.com/go/civil"

	"ATHWatch/internal/model"
)

// MaxHigh scans candles and returns the highest high and the UTC day it occurred.
// On ties the earliest candle wins. ok is false when there are no candles.
func MaxHigh(candles []model.Candle) (extreme model.PriceExtreme, ok bool) {
	for _, c := range candles {
		if !ok || c.High.GreaterThan(extreme.Price) {
			extreme = model.PriceExtreme{Price: c.High, Date: c.Day()}
			ok = true
		}
	}
	return extreme, ok
}

// FoldExtreme returns whichever of best and next has the higher price.
// best wins ties, so the earlier observation is kept when scanning forward.
func FoldExtreme(best model.PriceExtreme, haveBest bool, next model.PriceExtreme) model.PriceExtreme {
	if !haveBest || next.Price.GreaterThan(best.Price) {
		return next
	}
	return best
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start civil.Date
	End   civil.Date
}

// Days returns the number of calendar days covered by the window.
func (w Window) Days() int {
	return w.End.DaysSince(w.Start) + 1
}

// SplitWindows cuts [from, to] into contiguous, non-overlapping windows.
// Each window ends at most span days after it starts; the next one starts the day after.
func SplitWindows(from, to civil.Date, span int) []Window {
	if span < 0 || to.Before(from) {
		return nil
	}
	var windows []Window
	for start := from; !start.After(to); {
		end := start.AddDays(span)
		if end.After(to) {
			end = to
		}
		windows = append(windows, Window{Start: start, End: end})
		start = end.AddDays(1)
	}
	return windows
}
