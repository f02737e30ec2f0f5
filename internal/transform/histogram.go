package transform

import (
	"sort"

	"github.com/coffersTech/benchlog/internal/model"
)

// completedRequests returns the raw latency entries of recs, skipping the
// first entry of every client in each record. That entry is the request in
// flight when measuring began, not a completed operation.
func completedRequests(recs []*model.Record) []model.Entry {
	var out []model.Entry
	for _, r := range recs {
		seen := make(map[float64]bool)
		for _, e := range r.Entries {
			client, ok := e.Float(model.FieldClient)
			if !ok {
				continue
			}
			if !seen[client] {
				seen[client] = true
				continue
			}
			out = append(out, e)
		}
	}
	return out
}

// tagSeries holds one tag's requests bucketed by whole reply second.
type tagSeries struct {
	counts     map[int]int
	latencySum map[int]float64
	latencies  []float64
}

// bucketize groups requests by tag and second. Only seconds s with
// start <= s < end are kept; reply time decides the bucket.
func bucketize(entries []model.Entry, start, end int) (map[string]*tagSeries, []string) {
	series := make(map[string]*tagSeries)
	for _, e := range entries {
		sec := int(e.Timestamp())
		if sec < start || sec >= end {
			continue
		}
		tag, _ := e.String(model.FieldTag)
		latency, _ := e.Float(model.FieldLatency)
		s, ok := series[tag]
		if !ok {
			s = &tagSeries{counts: make(map[int]int), latencySum: make(map[int]float64)}
			series[tag] = s
		}
		s.counts[sec]++
		s.latencySum[sec] += latency
		s.latencies = append(s.latencies, latency)
	}

	tags := make([]string, 0, len(series))
	for t := range series {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return series, tags
}

// perSecond returns the request count of every second in [start, end).
func (s *tagSeries) perSecond(start, end int) []float64 {
	out := make([]float64, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, float64(s.counts[i]))
	}
	return out
}

// meanLatency returns the mean latency of second i, 0 without requests.
func (s *tagSeries) meanLatency(i int) float64 {
	if n := s.counts[i]; n > 0 {
		return s.latencySum[i] / float64(n)
	}
	return 0
}

func sortedCopy(xs []string) []string {
	out := append([]string(nil), xs...)
	sort.Strings(out)
	return out
}
