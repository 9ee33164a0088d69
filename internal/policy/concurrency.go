package policy

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode is a policy's concurrency class.
type Mode string

const (
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
)

// Concurrency bounds how many executions of one policy may run at once.
type Concurrency struct {
	Mode  Mode
	Limit int
}

// Parallel permits up to n simultaneous executions.
func Parallel(n int) Concurrency {
	return Concurrency{Mode: ModeParallel, Limit: n}
}

// Sequential permits one execution at a time, in submission order.
func Sequential() Concurrency {
	return Concurrency{Mode: ModeSequential, Limit: 1}
}

// Slots returns the worker pool size for this class.
func (c Concurrency) Slots() int {
	if c.Mode == ModeSequential || c.Limit < 1 {
		return 1
	}
	return c.Limit
}

// String renders "parallel(4)" or "sequential".
func (c Concurrency) String() string {
	if c.Mode == ModeSequential {
		return string(ModeSequential)
	}
	return fmt.Sprintf("%s(%d)", ModeParallel, c.Limit)
}

// ParseConcurrency parses the String form.
func ParseConcurrency(s string) (Concurrency, error) {
	s = strings.TrimSpace(s)
	if s == string(ModeSequential) {
		return Sequential(), nil
	}
	inner, ok := strings.CutPrefix(s, string(ModeParallel)+"(")
	if ok {
		inner, ok = strings.CutSuffix(inner, ")")
	}
	if !ok {
		return Concurrency{}, fmt.Errorf("invalid concurrency %q: want sequential or parallel(n)", s)
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 1 {
		return Concurrency{}, fmt.Errorf("invalid concurrency %q: limit must be a positive integer", s)
	}
	return Parallel(n), nil
}
