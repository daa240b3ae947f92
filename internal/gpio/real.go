//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/bulb-driver/internal/color"
)

// RealWriter drives channels with software PWM on Linux GPIO character
// device lines.
type RealWriter struct {
	chip     *gpiocdev.Chip
	channels []color.Channel
	lines    []*gpiocdev.Line
	period   time.Duration

	mu      sync.Mutex
	duties  []float64
	changed chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// NewRealWriter requests one output line per channel on chipName and starts
// the PWM goroutine. Every line starts low.
func NewRealWriter(chipName string, pins map[color.Channel]int, period time.Duration) (*RealWriter, error) {
	if period <= 0 {
		return nil, fmt.Errorf("pwm period must be positive, got %v", period)
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	w := &RealWriter{
		chip:    chip,
		period:  period,
		changed: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	for _, ch := range color.Channels {
		pin, ok := pins[ch]
		if !ok {
			w.release()
			return nil, fmt.Errorf("no pin configured for %s channel", ch)
		}
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			w.release()
			return nil, fmt.Errorf("request %s pin %d: %w", ch, pin, err)
		}
		w.channels = append(w.channels, ch)
		w.lines = append(w.lines, line)
	}
	w.duties = make([]float64, len(w.lines))

	go w.run()
	return w, nil
}

// Write replaces the duty of every channel. It takes effect from the next
// PWM period.
func (w *RealWriter) Write(out color.Outputs) error {
	w.mu.Lock()
	for i, ch := range w.channels {
		w.duties[i] = clampDuty(out.Duty(ch))
	}
	w.mu.Unlock()

	select {
	case w.changed <- struct{}{}:
	default:
	}
	return nil
}

func (w *RealWriter) snapshot() []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]float64(nil), w.duties...)
}

func (w *RealWriter) run() {
	defer close(w.done)

	var lastErr error
	report := func(err error) {
		if err != nil && (lastErr == nil || err.Error() != lastErr.Error()) {
			log.Error().Err(err).Msg("gpio: set line")
		}
		lastErr = err
	}

	for {
		duties := w.snapshot()
		start := time.Now()
		report(w.setLevels(duties))

		if isStatic(duties) {
			// Nothing to toggle: hold the levels until the next write.
			select {
			case <-w.stop:
				return
			case <-w.changed:
				continue
			}
		}

		for _, e := range fallingEdges(duties, w.period) {
			if !w.sleepUntil(start.Add(e.At)) {
				return
			}
			report(w.lines[e.Index].SetValue(0))
		}
		if !w.sleepUntil(start.Add(w.period)) {
			return
		}
	}
}

func (w *RealWriter) setLevels(duties []float64) error {
	for i, line := range w.lines {
		if err := line.SetValue(level(duties[i])); err != nil {
			return fmt.Errorf("%s line: %w", w.channels[i], err)
		}
	}
	return nil
}

// sleepUntil returns false if the writer was closed while waiting.
func (w *RealWriter) sleepUntil(t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-w.stop:
		return false
	case <-timer.C:
		return true
	}
}

// Close stops the PWM goroutine, drives every line low and returns the
// lines to input with pull-down (matching Pi boot defaults) before releasing them.
func (w *RealWriter) Close() error {
	close(w.stop)
	<-w.done
	return w.release()
}

func (w *RealWriter) release() error {
	var errs []error

	for i, line := range w.lines {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive %s low: %w", w.channels[i], err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", w.channels[i], err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", w.channels[i], err))
		}
	}
	w.lines = nil
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		w.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
