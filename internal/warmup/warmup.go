// Package warmup reports liveness for keep-warm pings and runs the
// poller that sends them.
package warmup

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pharmastore/internal/apperr"
	applog "pharmastore/internal/log"
	"pharmastore/internal/metrics"
)

type Status struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
	DB     string  `json:"db"`
}

type Checker struct {
	DB      *sqlx.DB
	Started time.Time
}

func NewChecker(db *sqlx.DB) *Checker {
	return &Checker{DB: db, Started: time.Now()}
}

// Check pings the database; uptime is in whole seconds.
func (c *Checker) Check(ctx context.Context) (Status, error) {
	st := Status{Status: "ok", DB: "ok", Uptime: math.Floor(time.Since(c.Started).Seconds())}
	if err := c.DB.PingContext(ctx); err != nil {
		st.Status, st.DB = "degraded", "down"
		return st, apperr.Unavailable("database unavailable")
	}
	return st, nil
}

const DefaultInterval = 5 * time.Minute

type Poller struct {
	URLs     []string
	Interval time.Duration
	Client   *http.Client
}

func NewPoller(urls []string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{URLs: urls, Interval: interval, Client: &http.Client{Timeout: 30 * time.Second}}
}

// Run pings every URL immediately and then on each tick until ctx ends.
func (p *Poller) Run(ctx context.Context) error {
	if len(p.URLs) == 0 {
		return fmt.Errorf("no URLs to keep warm")
	}
	t := time.NewTicker(p.Interval)
	defer t.Stop()
	for {
		_ = p.Tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Tick fans out one GET per URL and returns the first failure.
func (p *Poller) Tick(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range p.URLs {
		g.Go(func() error {
			err := p.ping(gctx, u)
			metrics.WarmupPings.WithLabelValues(metrics.Result(err)).Inc()
			return err
		})
	}
	return g.Wait()
}

func (p *Poller) ping(ctx context.Context, url string) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		applog.L().Warn("keepwarm.ping_failed", zap.String("url", url), zap.Error(err))
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	applog.L().Info("keepwarm.ping",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return nil
}
