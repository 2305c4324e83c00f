package monitoring

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType 指标类型
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
	MetricTypeSummary MetricType = "summary"
)

// Metric 单条指标（名称+标签唯一）
type Metric struct {
	Name   string            `json:"name"`
	Type   MetricType        `json:"type"`
	Help   string            `json:"help,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
	Count  uint64            `json:"count,omitempty"`
}

// MetricsCollector 指标收集器
type MetricsCollector struct {
	mu        sync.RWMutex
	metrics   map[string]*Metric
	startTime time.Time
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string]*Metric),
		startTime: time.Now(),
	}
}

func (mc *MetricsCollector) get(name, help string, typ MetricType, labels map[string]string) *Metric {
	key := name + labelString(labels)
	m, ok := mc.metrics[key]
	if !ok {
		m = &Metric{Name: name, Type: typ, Help: help, Labels: copyLabels(labels)}
		mc.metrics[key] = m
	}
	return m
}

// IncrCounter 计数器加一
func (mc *MetricsCollector) IncrCounter(name, help string, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.get(name, help, MetricTypeCounter, labels).Value++
}

// SetGauge 设置仪表值
func (mc *MetricsCollector) SetGauge(name, help string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.get(name, help, MetricTypeGauge, labels).Value = value
}

// Observe 记录一次观测值（累计和与次数）
func (mc *MetricsCollector) Observe(name, help string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	m := mc.get(name, help, MetricTypeSummary, labels)
	m.Value += value
	m.Count++
}

// Snapshot 返回按名称排序的指标副本
func (mc *MetricsCollector) Snapshot() []Metric {
	mc.mu.RLock()
	keys := make([]string, 0, len(mc.metrics))
	for k := range mc.metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Metric, 0, len(keys))
	for _, k := range keys {
		m := *mc.metrics[k]
		m.Labels = copyLabels(m.Labels)
		out = append(out, m)
	}
	mc.mu.RUnlock()
	return out
}

// ExportPrometheus 导出Prometheus文本格式
func (mc *MetricsCollector) ExportPrometheus() string {
	var b strings.Builder
	described := make(map[string]bool)
	for _, m := range mc.Snapshot() {
		if !described[m.Name] {
			help := m.Help
			if help == "" {
				help = fmt.Sprintf("Metric %s", m.Name)
			}
			fmt.Fprintf(&b, "# HELP %s %s\n", m.Name, help)
			fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name, m.Type)
			described[m.Name] = true
		}
		labels := labelString(m.Labels)
		if m.Type == MetricTypeSummary {
			fmt.Fprintf(&b, "%s_sum%s %g\n", m.Name, labels, m.Value)
			fmt.Fprintf(&b, "%s_count%s %d\n", m.Name, labels, m.Count)
			continue
		}
		fmt.Fprintf(&b, "%s%s %g\n", m.Name, labels, m.Value)
	}
	return b.String()
}

// GetUptime 获取运行时间
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

func labelString(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
