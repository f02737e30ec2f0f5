package transform

import (
	"github.com/coffersTech/benchlog/internal/model"
	"github.com/coffersTech/benchlog/internal/stats"
)

// Derived record kinds.
const (
	KindClientLogAverages      = "client-log-averages"
	KindClientRawLatencies     = "client-raw-latencies"
	KindClientRawThroughput    = "client-raw-throughput"
	KindClientRawAvgThroughput = "client-raw-avg-throughput"
	KindClientRawAverages      = "client-raw-averages"
)

// AverageID is the id of summaries merged over all clients of a scenario.
const AverageID = "client-avg"

// ClientLogAverages summarizes the per-second throughput lines printed by
// each client, one entry per client count.
func ClientLogAverages() Aggregator {
	return Aggregator{
		Kind:        "client",
		DerivedKind: KindClientLogAverages,
		Key:         ByID,
		Scope:       AcrossClientCounts,
		Summarize:   logAverages,
	}
}

// RawLatencies computes latency percentiles per client and tag from raw
// request traces.
func RawLatencies() Aggregator {
	return Aggregator{
		Kind:        "latency",
		DerivedKind: KindClientRawLatencies,
		Key:         ByID,
		Scope:       AcrossClientCounts,
		Summarize:   rawLatencies,
	}
}

// RawThroughput rebuilds a per-second throughput series from each raw trace.
func RawThroughput() Aggregator {
	return Aggregator{
		Kind:        "latency",
		DerivedKind: KindClientRawThroughput,
		Key:         ByID,
		Scope:       PerClientCount,
		Summarize:   rawThroughput,
	}
}

// RawAvgThroughput is RawThroughput over all clients of a scenario and
// client count combined.
func RawAvgThroughput() Aggregator {
	return Aggregator{
		Kind:        "latency",
		DerivedKind: KindClientRawAvgThroughput,
		ID:          AverageID,
		Key:         ByScenario,
		Scope:       PerClientCount,
		MinRecords:  2,
		Summarize:   rawThroughput,
	}
}

// RawAverages computes whole-window throughput and mean latency per tag
// over all clients, one entry per client count and tag.
func RawAverages() Aggregator {
	return Aggregator{
		Kind:        "latency",
		DerivedKind: KindClientRawAverages,
		ID:          AverageID,
		Key:         ByScenario,
		Scope:       AcrossClientCounts,
		Summarize:   rawAverages,
	}
}

// StandardAggregators is the group stage used for client benchmarks.
func StandardAggregators() []Transformer {
	return []Transformer{
		ClientLogAverages(),
		RawLatencies(),
		RawThroughput(),
		RawAvgThroughput(),
		RawAverages(),
	}
}

func logAverages(recs []*model.Record, clientCount int, w Window) ([]model.Entry, error) {
	var first model.Entry
	var throughput, latency []float64
	for _, r := range recs {
		for _, e := range r.Entries {
			tp, ok := e.Float(model.FieldThroughput)
			if !ok || !w.Contains(e.Timestamp()) {
				continue
			}
			if first == nil {
				first = e
			}
			lat, _ := e.Float(model.FieldLatency)
			throughput = append(throughput, tp)
			latency = append(latency, lat)
		}
	}
	if len(throughput) < 2 {
		return nil, model.Fatalf("Not enough measurements inside %s: %d", w, len(throughput))
	}

	out := model.Entry{
		model.FieldTimestamp: first.Timestamp(),
		"client_count":       float64(clientCount),
	}
	if err := describe(out, "throughput", throughput); err != nil {
		return nil, err
	}
	// averages of per-second averages: shows latency stability over time
	if err := describe(out, "latency", latency); err != nil {
		return nil, err
	}
	return []model.Entry{out}, nil
}

func describe(out model.Entry, prefix string, xs []float64) error {
	mean, err := stats.Mean(xs)
	if err != nil {
		return err
	}
	median, err := stats.Median(xs)
	if err != nil {
		return err
	}
	stddev, err := stats.SampleStdDev(xs)
	if err != nil {
		return err
	}
	out[prefix+"_average"] = mean
	out[prefix+"_median"] = median
	out[prefix+"_stddev"] = stddev
	return nil
}

func rawLatencies(recs []*model.Record, clientCount int, w Window) ([]model.Entry, error) {
	start, end := int(w.Start), int(w.End)
	series, tags := bucketize(completedRequests(recs), start, end)

	out := make([]model.Entry, 0, len(tags))
	for _, tag := range tags {
		s := series[tag]
		perSec := s.perSecond(start, end)
		tpAvg, err := stats.Mean(perSec)
		if err != nil {
			return nil, err
		}
		latAvg, err := stats.Mean(s.latencies)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Entry{
			model.FieldTimestamp: w.Start,
			"client_count":       float64(clientCount),
			model.FieldTag:       tag,
			"throughput_average": tpAvg,
			"throughput_median":  stats.Percentile(perSec, 0.5),
			"latency_average":    latAvg,
			"latency_50":         stats.Percentile(s.latencies, 0.5),
			"latency_90":         stats.Percentile(s.latencies, 0.9),
			"latency_99":         stats.Percentile(s.latencies, 0.99),
		})
	}
	return out, nil
}

func rawThroughput(recs []*model.Record, _ int, w Window) ([]model.Entry, error) {
	start, end := int(w.Start), int(w.End)
	series, tags := bucketize(completedRequests(recs), start, end)

	out := make([]model.Entry, 0, len(tags)*(end-start))
	for _, tag := range tags {
		s := series[tag]
		for i := start; i < end; i++ {
			out = append(out, model.Entry{
				model.FieldTimestamp:  float64(i),
				model.FieldTag:        tag,
				model.FieldThroughput: float64(s.counts[i]),
				model.FieldLatency:    s.meanLatency(i),
			})
		}
	}
	return out, nil
}

func rawAverages(recs []*model.Record, clientCount int, w Window) ([]model.Entry, error) {
	counts := make(map[string]int)
	latency := make(map[string]float64)
	var tags []string
	for _, e := range completedRequests(recs) {
		sec := float64(int(e.Timestamp()))
		if !w.Contains(sec) {
			continue
		}
		tag, _ := e.String(model.FieldTag)
		if _, ok := counts[tag]; !ok {
			tags = append(tags, tag)
		}
		lat, _ := e.Float(model.FieldLatency)
		counts[tag]++
		latency[tag] += lat
	}

	out := make([]model.Entry, 0, len(tags))
	for _, tag := range sortedCopy(tags) {
		n := counts[tag]
		out = append(out, model.Entry{
			model.FieldTimestamp:  w.Start + 0.01,
			"client_count":        float64(clientCount),
			model.FieldTag:        tag,
			model.FieldThroughput: float64(n) / w.Duration(),
			model.FieldLatency:    latency[tag] / float64(n),
		})
	}
	return out, nil
}
