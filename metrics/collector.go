// Package metrics keeps in-process counters about editing activity.
package metrics

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leeforge/shrink/event"
	"github.com/leeforge/shrink/json"
)

const historySize = 100

// Collector stores counters, gauges and short histograms.
type Collector struct {
	metrics map[string]*Metric
	mu      sync.RWMutex
}

// Metric is one named series.
type Metric struct {
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	History   []float64         `json:"history,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

func NewCollector() *Collector {
	return &Collector{
		metrics: make(map[string]*Metric),
	}
}

// IncCounter adds one to a counter.
func (c *Collector) IncCounter(name string, labels map[string]string) {
	c.AddCounter(name, 1, labels)
}

// AddCounter adds value to a counter.
func (c *Collector) AddCounter(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildKey(name, labels)
	if metric, exists := c.metrics[key]; exists {
		metric.Value += value
		metric.Timestamp = time.Now().Unix()
		return
	}
	c.metrics[key] = &Metric{
		Type:      "counter",
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now().Unix(),
	}
}

// SetGauge sets a gauge to value.
func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics[buildKey(name, labels)] = &Metric{
		Type:      "gauge",
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now().Unix(),
	}
}

// ObserveHistogram records value; the last 100 observations are kept.
func (c *Collector) ObserveHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildKey(name, labels)
	if metric, exists := c.metrics[key]; exists {
		metric.Value = value
		metric.History = append(metric.History, value)
		if len(metric.History) > historySize {
			metric.History = metric.History[1:]
		}
		metric.Timestamp = time.Now().Unix()
		return
	}
	c.metrics[key] = &Metric{
		Type:      "histogram",
		Value:     value,
		Labels:    labels,
		History:   []float64{value},
		Timestamp: time.Now().Unix(),
	}
}

// buildKey is name followed by labels in key order.
func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		sb.WriteString(":" + k + "=" + labels[k])
	}
	return sb.String()
}

// GetMetrics returns a copy of every series.
func (c *Collector) GetMetrics() map[string]Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Metric, len(c.metrics))
	for k, v := range c.metrics {
		m := *v
		m.History = append([]float64(nil), v.History...)
		result[k] = m
	}
	return result
}

// GetMetric returns the current value of one series.
func (c *Collector) GetMetric(name string, labels map[string]string) (Metric, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.metrics[buildKey(name, labels)]
	if !ok {
		return Metric{}, false
	}
	return *m, true
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = make(map[string]*Metric)
}

// WriteJSON writes a snapshot of all series to w.
func (c *Collector) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(c.GetMetrics())
}

// Series recorded by Watch.
const (
	ImagesLoaded      = "images_loaded_total"
	LoadFailures      = "image_load_failures_total"
	Previews          = "previews_total"
	PreviewEstimate   = "preview_estimated_bytes"
	ImagesSaved       = "images_saved_total"
	SaveFailures      = "image_save_failures_total"
	BytesWritten      = "bytes_written_total"
	SourceBytesLoaded = "source_bytes_loaded_total"
)

// Watch subscribes c to the session events on bus.
func (c *Collector) Watch(bus event.Bus) []event.Subscription {
	handlers := map[string]event.Handler{
		event.ImageLoaded: func(_ context.Context, e event.Event) error {
			if info, ok := e.Data.(event.ImageInfo); ok {
				c.IncCounter(ImagesLoaded, map[string]string{"format": info.Format})
				c.AddCounter(SourceBytesLoaded, float64(info.Size), nil)
			}
			return nil
		},
		event.ImageLoadFailed: func(context.Context, event.Event) error {
			c.IncCounter(LoadFailures, nil)
			return nil
		},
		event.ImagePreviewed: func(_ context.Context, e event.Event) error {
			c.IncCounter(Previews, nil)
			if p, ok := e.Data.(event.Preview); ok {
				c.ObserveHistogram(PreviewEstimate, float64(p.EstimatedSize), map[string]string{"format": p.Format})
			}
			return nil
		},
		event.ImageSaved: func(_ context.Context, e event.Event) error {
			if info, ok := e.Data.(event.ImageInfo); ok {
				c.IncCounter(ImagesSaved, map[string]string{"format": info.Format})
				c.AddCounter(BytesWritten, float64(info.Size), nil)
			}
			return nil
		},
		event.ImageSaveFailed: func(context.Context, event.Event) error {
			c.IncCounter(SaveFailures, nil)
			return nil
		},
	}

	subs := make([]event.Subscription, 0, len(handlers))
	for topic, h := range handlers {
		subs = append(subs, bus.Subscribe(topic, h))
	}
	return subs
}
