package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/arcade/lobby/loadtest/client"
	"github.com/arcade/lobby/loadtest/stats"
)

// runInvite pairs users up and drives invite rounds between them. Each round
// the inviter sends game_invite, the invitee answers as soon as it sees it,
// and the inviter waits for game_invite_response. Delivery and round-trip
// latencies are collected separately.
func runInvite(args []string) {
	fs := flag.NewFlagSet("invite", flag.ExitOnError)
	url := fs.String("url", "ws://localhost:8443/ws", "WebSocket server URL")
	metricsURL := fs.String("metrics", "", "Prometheus endpoint to scrape")
	pairs := fs.Int("pairs", 100, "Number of inviter/invitee pairs")
	duration := fs.Duration("duration", 30*time.Second, "Test duration")
	interval := fs.Duration("interval", time.Second, "Pause between rounds of one pair")
	timeout := fs.Duration("timeout", 5*time.Second, "Round timeout")
	prefix := fs.String("prefix", "inv", "User id prefix")
	fs.Parse(args)

	fmt.Printf("Invite test: %d pairs on %s for %s (interval=%s)\n", *pairs, *url, *duration, *interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	collector := stats.NewCollector()
	if *metricsURL != "" {
		scraper := stats.NewScraper(*metricsURL, 2*time.Second)
		scraper.Start(ctx)
		defer scraper.Stop()
		collector.SetScraper(scraper)
	}

	var wg sync.WaitGroup
	for i := 0; i < *pairs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := pair{
				inviterID: fmt.Sprintf("%s-%d-a", *prefix, i),
				inviteeID: fmt.Sprintf("%s-%d-b", *prefix, i),
				interval:  *interval,
				timeout:   *timeout,
				stats:     collector,
			}
			p.run(ctx, *url)
		}(i)
	}
	wg.Wait()

	collector.Report()
}

type pair struct {
	inviterID string
	inviteeID string
	interval  time.Duration
	timeout   time.Duration
	stats     *stats.Collector
}

func (p pair) run(ctx context.Context, url string) {
	inviter, err := p.connect(ctx, url, p.inviterID)
	if err != nil {
		return
	}
	defer inviter.Close()
	invitee, err := p.connect(ctx, url, p.inviteeID)
	if err != nil {
		return
	}
	defer invitee.Close()

	var (
		mu     sync.Mutex
		sentAt time.Time
	)
	responses := make(chan struct{}, 1)

	invitee.On(client.TypeGameInvite, func(data json.RawMessage) {
		var inv client.Invite
		if err := json.Unmarshal(data, &inv); err != nil || inv.InviteeID != p.inviteeID {
			return
		}
		mu.Lock()
		p.stats.Observe("invite_delivery", time.Since(sentAt))
		mu.Unlock()
		if err := invitee.Send(client.TypeGameInviteResponse, client.InviteResponse{
			InviterID: p.inviterID,
			InviteeID: p.inviteeID,
			Accepted:  true,
		}); err != nil {
			p.stats.AddError()
		}
	})
	inviter.On(client.TypeGameInviteResponse, func(data json.RawMessage) {
		select {
		case responses <- struct{}{}:
		default:
		}
	})

	for {
		mu.Lock()
		sentAt = time.Now()
		start := sentAt
		mu.Unlock()

		if err := inviter.Send(client.TypeGameInvite, client.Invite{
			InviterID: p.inviterID,
			InviteeID: p.inviteeID,
		}); err != nil {
			p.stats.AddError()
			break
		}

		timer := time.NewTimer(p.timeout)
		select {
		case <-responses:
			p.stats.Observe("invite_round_trip", time.Since(start))
		case <-timer.C:
			p.stats.AddError()
		case <-ctx.Done():
		}
		timer.Stop()

		select {
		case <-ctx.Done():
		case <-time.After(p.interval):
			continue
		}
		break
	}

	p.stats.AddRateLimited(inviter.GetMetrics().RateLimited)
}

func (p pair) connect(ctx context.Context, url, userID string) (*client.Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := client.New(connCtx, url)
	if err != nil {
		p.stats.AddError()
		return nil, err
	}
	if err := c.Join(connCtx, userID, userID); err != nil {
		p.stats.AddError()
		c.Close()
		return nil, err
	}
	m := c.GetMetrics()
	p.stats.AddConnect(m.ConnectLatency)
	p.stats.Observe("join", m.JoinLatency)
	return c, nil
}
