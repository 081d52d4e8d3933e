package pipeline

import (
	"fmt"
	"slices"
	"sort"

	"covid-impact-pipeline/internal/config"
	"covid-impact-pipeline/internal/model"
)

func (p *Pipeline) newChart(cc config.ChartConfig) (chart, error) {
	kind, err := model.ParseChartKind(cc.Kind)
	if err != nil {
		return chart{}, err
	}
	d, ok := p.datasets[cc.Dataset]
	if !ok {
		return chart{}, fmt.Errorf("%w: %s", ErrUnknownDataset, cc.Dataset)
	}

	ch := chart{
		info: model.ChartInfo{
			ID:      cc.ID,
			Title:   cc.Title,
			Kind:    kind,
			Dataset: cc.Dataset,
		},
		metric:   cc.Metric,
		fromYear: cc.FromYear,
		toYear:   cc.ToYear,
	}
	if kind == model.ChartEntitySeries {
		ch.info.Selectors = append([]string{OverallSelector}, d.Entities...)
	} else {
		ch.info.Selectors = append([]string(nil), cc.Metrics...)
	}

	ch.info.Default = cc.Default
	if ch.info.Default == "" && len(ch.info.Selectors) > 0 {
		ch.info.Default = ch.info.Selectors[0]
	}
	return ch, nil
}

// Charts lists the registered charts in configuration order.
func (p *Pipeline) Charts() []model.ChartInfo {
	out := make([]model.ChartInfo, 0, len(p.chartIDs))
	for _, id := range p.chartIDs {
		info := p.charts[id].info
		info.Selectors = append([]string(nil), info.Selectors...)
		out = append(out, info)
	}
	return out
}

// Chart returns one registered chart.
func (p *Pipeline) Chart(id string) (model.ChartInfo, error) {
	ch, ok := p.charts[id]
	if !ok {
		return model.ChartInfo{}, fmt.Errorf("%w: %s", ErrUnknownChart, id)
	}
	info := ch.info
	info.Selectors = append([]string(nil), info.Selectors...)
	return info, nil
}

// ChartData returns the records a chart shows for one selector value. An
// empty selector means the chart's default. The returned slices are fresh
// copies.
func (p *Pipeline) ChartData(chartID, selector string) (*model.ChartData, error) {
	ch, ok := p.charts[chartID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChart, chartID)
	}
	if selector == "" {
		selector = ch.info.Default
	}
	if !slices.Contains(ch.info.Selectors, selector) {
		return nil, fmt.Errorf("%w: %q for chart %s", ErrInvalidSelector, selector, chartID)
	}
	d := p.datasets[ch.info.Dataset]

	out := &model.ChartData{
		Chart:    ch.info.ID,
		Title:    ch.info.Title,
		Kind:     ch.info.Kind,
		Dataset:  d.ID,
		Metric:   selector,
		Selector: selector,
	}

	switch ch.info.Kind {
	case model.ChartContinentLine:
		out.Aggregates = append([]model.AggregateRecord(nil), d.Aggregates[selector]...)
	case model.ChartChoropleth:
		out.Records = choroplethFrames(d.Records, selector)
	case model.ChartEntitySeries:
		out.Metric = ch.metric
		out.Records = entitySeries(d.Records, ch.metric, selector)
	case model.ChartEntityDelta:
		out.Deltas = Delta(d.Records, selector, ch.fromYear, ch.toYear)
	}
	return out, nil
}

// choroplethFrames keeps the mappable records of one metric, ordered by
// year so each year forms one animation frame.
func choroplethFrames(records []model.GeoRecord, metric string) []model.GeoRecord {
	var out []model.GeoRecord
	for _, r := range records {
		if r.Metric == metric && r.ISO3 != "" {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Entity < out[j].Entity
	})
	return out
}

// entitySeries returns the records of one entity, or of every entity for
// OverallSelector. An empty metric keeps all metrics.
func entitySeries(records []model.GeoRecord, metric, entity string) []model.GeoRecord {
	var out []model.GeoRecord
	for _, r := range records {
		if metric != "" && r.Metric != metric {
			continue
		}
		if entity != OverallSelector && r.Entity != entity {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Entity != out[j].Entity {
			return out[i].Entity < out[j].Entity
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Metric < out[j].Metric
	})
	return out
}
