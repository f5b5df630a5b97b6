package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Engine expands repetition rules into concrete occurrences
type Engine struct {
	opts ExpansionOptions
}

// NewEngine creates a new recurrence engine instance
func NewEngine() *Engine {
	return NewEngineWithOptions(DefaultExpansionOptions)
}

// NewEngineWithOptions creates an engine with custom limits
func NewEngineWithOptions(opts ExpansionOptions) *Engine {
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = DefaultExpansionOptions.MaxOccurrences
	}
	return &Engine{opts: opts}
}

// Weekly returns a rule repeating every week, count times in total.
func Weekly(count int) Rule {
	return Rule{RRULE: fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", count)}
}

// Validate parses rule without expanding it.
func (e *Engine) Validate(rule Rule) error {
	_, err := e.parse(time.Now(), rule)
	return err
}

func (e *Engine) parse(start time.Time, rule Rule) (*rrule.RRule, error) {
	body := strings.TrimPrefix(strings.TrimSpace(rule.RRULE), "RRULE:")
	if body == "" {
		return nil, fmt.Errorf("%w: empty rule", ErrInvalidRule)
	}

	opt, err := rrule.StrToROption(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRule, body, err)
	}
	if opt.Count < 0 {
		return nil, fmt.Errorf("%w: negative COUNT", ErrInvalidRule)
	}
	if opt.Count > e.opts.MaxOccurrences {
		return nil, fmt.Errorf("%w: %d requested, limit is %d", ErrTooManyOccurrences, opt.Count, e.opts.MaxOccurrences)
	}
	if opt.Count == 0 && opt.Until.IsZero() {
		// Open-ended rules are cut at the limit.
		opt.Count = e.opts.MaxOccurrences
	}

	// Dtstart carries the location, so wall-clock time is kept across DST changes.
	opt.Dtstart = start

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return r, nil
}

// Expand lists every occurrence of rule for an event spanning start..end.
// Each occurrence keeps the original duration.
func (e *Engine) Expand(start, end time.Time, rule Rule) ([]Occurrence, error) {
	r, err := e.parse(start, rule)
	if err != nil {
		return nil, err
	}

	set := &rrule.Set{}
	set.RRule(r)
	for _, ex := range rule.EXDATE {
		set.ExDate(ex)
	}

	// Iterate rather than call All so an UNTIL far in the future still stops at the limit.
	next := set.Iterator()
	duration := end.Sub(start)
	var out []Occurrence
	for {
		t, ok := next()
		if !ok {
			break
		}
		if len(out) == e.opts.MaxOccurrences {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyOccurrences, e.opts.MaxOccurrences)
		}
		out = append(out, Occurrence{Start: t, End: t.Add(duration)})
	}
	return out, nil
}
