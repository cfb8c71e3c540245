// internal/anomaly/detector.go
package anomaly

import (
	"fmt"
	"sync"
	"time"

	"amp-monitor/internal/config"
	"amp-monitor/internal/data"
)

type key struct {
	amplifier string
	metric    data.Metric
}

// Detector checks readings against the configured min/max rules. It alerts
// once when a reading leaves its range and once when it comes back.
type Detector struct {
	rules map[data.Metric]config.Rule
	now   func() time.Time

	mu      sync.Mutex
	outside map[key]bool
}

func NewDetector(cfg *config.Config) *Detector {
	rules := make(map[data.Metric]config.Rule, len(cfg.Anomaly.Rules))
	for name, r := range cfg.Anomaly.Rules {
		if m, err := data.ParseMetric(name); err == nil {
			rules[m] = r
		}
	}
	return &Detector{rules: rules, now: time.Now, outside: make(map[key]bool)}
}

// Check checks one reading. Non-numeric readings and metrics without a rule
// never alert.
func (d *Detector) Check(amplifier string, metric data.Metric, r data.Reading) []data.Alert {
	rule, ok := d.rules[metric]
	if !ok {
		return nil
	}
	v, numeric := r.Float()
	if !numeric {
		return nil
	}

	k := key{amplifier, metric}
	out := v < rule.Min || v > rule.Max

	d.mu.Lock()
	was := d.outside[k]
	if out {
		d.outside[k] = true
	} else {
		delete(d.outside, k)
	}
	d.mu.Unlock()

	if out == was {
		return nil
	}

	alert := data.Alert{
		Timestamp: d.now(),
		Amplifier: amplifier,
		Metric:    metric,
		Value:     v,
		Min:       rule.Min,
		Max:       rule.Max,
	}
	if out {
		alert.Severity = data.TypeWarning
		alert.Message = fmt.Sprintf("%s %s is %.2f, outside range [%.2f, %.2f]", amplifier, metric, v, rule.Min, rule.Max)
	} else {
		alert.Severity = data.TypeSuccess
		alert.Message = fmt.Sprintf("%s %s back to %.2f, within range [%.2f, %.2f]", amplifier, metric, v, rule.Min, rule.Max)
	}
	return []data.Alert{alert}
}

// Reset forgets the state for an amplifier.
func (d *Detector) Reset(amplifier string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := range d.outside {
		if k.amplifier == amplifier {
			delete(d.outside, k)
		}
	}
}
