// Package stats aggregates timings from many load test clients and prints a
// summary with percentile distributions.
package stats

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Collector is safe for concurrent use by every client goroutine.
type Collector struct {
	mu          sync.Mutex
	samples     map[string][]time.Duration
	order       []string
	errors      int
	rateLimited int
	connections int
	startTime   time.Time
	scraper     *Scraper
}

// NewCollector creates a Collector with the start time set to now.
func NewCollector() *Collector {
	return &Collector{
		samples:   make(map[string][]time.Duration),
		startTime: time.Now(),
	}
}

// SetScraper attaches a server metrics scraper whose report follows ours.
func (c *Collector) SetScraper(s *Scraper) {
	c.mu.Lock()
	c.scraper = s
	c.mu.Unlock()
}

// AddConnect records an established connection.
func (c *Collector) AddConnect(d time.Duration) {
	c.mu.Lock()
	c.connections++
	c.mu.Unlock()
	c.Observe("connect", d)
}

// Observe records one latency under name, e.g. "join" or "invite_delivery".
// Names are reported in first-seen order.
func (c *Collector) Observe(name string, d time.Duration) {
	c.mu.Lock()
	if _, ok := c.samples[name]; !ok {
		c.order = append(c.order, name)
	}
	c.samples[name] = append(c.samples[name], d)
	c.mu.Unlock()
}

// AddError increments the error counter.
func (c *Collector) AddError() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

// AddRateLimited counts requests the invite cooldown rejected.
func (c *Collector) AddRateLimited(n int) {
	c.mu.Lock()
	c.rateLimited += n
	c.mu.Unlock()
}

// ConnectionCount returns the number of recorded connections.
func (c *Collector) ConnectionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connections
}

// ErrorCount returns the number of recorded errors.
func (c *Collector) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}

// Report prints the summary to stdout.
func (c *Collector) Report() {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Println("\n=== Load Test Results ===")
	fmt.Printf("Duration:     %s\n", time.Since(c.startTime).Round(time.Second))
	fmt.Printf("Connections:  %d\n", c.connections)
	fmt.Printf("Errors:       %d\n", c.errors)
	fmt.Printf("Rate limited: %d\n", c.rateLimited)
	if c.connections > 0 {
		fmt.Printf("Error rate:   %.2f%%\n", float64(c.errors)/float64(c.connections)*100)
	}

	for _, name := range c.order {
		fmt.Printf("\n--- %s latency ---\n", name)
		printPercentiles(c.samples[name])
	}

	if c.scraper != nil {
		c.scraper.Report()
	}
	fmt.Println()
}

func printPercentiles(durations []time.Duration) {
	if len(durations) == 0 {
		return
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	n := len(durations)
	p50 := durations[n/2]
	p95 := durations[int(math.Ceil(float64(n)*0.95))-1]
	p99 := durations[int(math.Ceil(float64(n)*0.99))-1]

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	avg := sum / time.Duration(n)

	fmt.Printf("  avg: %v  p50: %v  p95: %v  p99: %v  max: %v  (n=%d)\n",
		avg.Round(time.Microsecond),
		p50.Round(time.Microsecond),
		p95.Round(time.Microsecond),
		p99.Round(time.Microsecond),
		durations[n-1].Round(time.Microsecond),
		n,
	)
}
