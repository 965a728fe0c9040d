package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the trace steps to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Steps    []StepTrace
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nSteps:\n")
	for i, s := range e.Steps {
		fmt.Fprintf(&buf, "  [%d] %s %q %s\n", i+1, s.Op, s.Title, s.Outcome)
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against trace and returns the
// failure messages.
func EvaluateAssertions(trace Trace, assertions []Assertion) []string {
	var msgs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertStepContains:
			err = assertStepContains(trace, a)
		case AssertStepOrder:
			err = assertStepOrder(trace, a)
		case AssertCallCount:
			err = assertCallCount(trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

// assertStepContains checks for a step with the given op and, when set,
// title and outcome.
func assertStepContains(trace Trace, a Assertion) error {
	for _, s := range trace.Steps {
		if s.Op != a.Op {
			continue
		}
		if a.Title != "" && s.Title != a.Title {
			continue
		}
		if a.Outcome != "" && s.Outcome != a.Outcome {
			continue
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertStepContains,
		Expected: fmt.Sprintf("step %s %q outcome %q", a.Op, a.Title, a.Outcome),
		Actual:   "not found in report",
		Steps:    trace.Steps,
	}
}

// assertStepOrder checks that applied steps, written "op title", occur in
// the listed order. Other steps may come between them.
func assertStepOrder(trace Trace, a Assertion) error {
	next := 0
	for _, s := range trace.Steps {
		if next == len(a.Steps) {
			break
		}
		if s.Outcome == "applied" && s.Op+" "+s.Title == a.Steps[next] {
			next++
		}
	}
	if next == len(a.Steps) {
		return nil
	}
	return &AssertionError{
		Type:     AssertStepOrder,
		Expected: fmt.Sprintf("applied steps in order: %v", a.Steps),
		Actual:   fmt.Sprintf("%q missing or out of order", a.Steps[next]),
		Steps:    trace.Steps,
	}
}

// assertCallCount checks that a request was sent exactly Count times.
func assertCallCount(trace Trace, a Assertion) error {
	count := 0
	for _, c := range trace.Calls {
		if c == a.Call {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCallCount,
		Expected: fmt.Sprintf("%s sent %d times", a.Call, a.Count),
		Actual:   fmt.Sprintf("sent %d times", count),
		Steps:    trace.Steps,
	}
}
