package market

import (
	"sort"
	"time"
)

// Resample buckets an irregular price/volume series into fixed-width bars at
// the given granularity. Buckets are left-closed and aligned to the
// granularity's natural epoch boundary, so daily buckets open at midnight
// UTC. For each non-empty bucket: open is the first sample in bucket order,
// close the last, high/low the extremes, and volume the sum of present
// volume observations (absent volumes contribute 0 to the sum only). Empty
// buckets are omitted; the output is ascending and not necessarily
// contiguous. The operation is deterministic and idempotent for identical
// input and granularity.
func Resample(raw RawSeries, tf Timeframe) []Bar {
	width := tf.Duration()
	if width <= 0 || len(raw.Points) == 0 {
		return nil
	}

	points := make([]RawPoint, len(raw.Points))
	copy(points, raw.Points)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	var bars []Bar
	var cur *Bar
	var curBucket time.Time
	for _, p := range points {
		bucket := p.Timestamp.UTC().Truncate(width)
		if cur == nil || !bucket.Equal(curBucket) {
			if cur != nil {
				bars = append(bars, *cur)
			}
			curBucket = bucket
			cur = &Bar{
				Timestamp: bucket,
				Open:      p.Price,
				High:      p.Price,
				Low:       p.Price,
				Close:     p.Price,
			}
			if p.HasVolume {
				cur.Volume = p.Volume
			}
			continue
		}
		if p.Price > cur.High {
			cur.High = p.Price
		}
		if p.Price < cur.Low {
			cur.Low = p.Price
		}
		cur.Close = p.Price
		if p.HasVolume {
			cur.Volume += p.Volume
		}
	}
	if cur != nil {
		bars = append(bars, *cur)
	}
	return bars
}

// JoinNearest left-joins volume samples onto price samples by nearest
// timestamp. A volume observation further than tolerance from every price
// sample stays unmatched; price samples without a match carry no volume
// (absent, not zero). Both inputs are treated as unordered.
func JoinNearest(prices, volumes []TimedValue, tolerance time.Duration) RawSeries {
	sorted := make([]TimedValue, len(volumes))
	copy(sorted, volumes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	points := make([]RawPoint, 0, len(prices))
	for _, p := range prices {
		point := RawPoint{Timestamp: p.Timestamp, Price: p.Value}
		if v, ok := nearest(sorted, p.Timestamp, tolerance); ok {
			point.Volume = v
			point.HasVolume = true
		}
		points = append(points, point)
	}
	return RawSeries{Points: points}
}

// TimedValue is one timestamped observation of an upstream series.
type TimedValue struct {
	Timestamp time.Time
	Value     float64
}

func nearest(sorted []TimedValue, ts time.Time, tolerance time.Duration) (float64, bool) {
	if len(sorted) == 0 {
		return 0, false
	}
	idx := sort.Search(len(sorted), func(i int) bool {
		return !sorted[i].Timestamp.Before(ts)
	})
	best := -1
	var bestGap time.Duration
	for _, i := range []int{idx - 1, idx} {
		if i < 0 || i >= len(sorted) {
			continue
		}
		gap := sorted[i].Timestamp.Sub(ts)
		if gap < 0 {
			gap = -gap
		}
		if best == -1 || gap < bestGap {
			best = i
			bestGap = gap
		}
	}
	if best == -1 || (tolerance > 0 && bestGap > tolerance) {
		return 0, false
	}
	return sorted[best].Value, true
}
