package prng

import (
	"context"
	"time"
)

const timingSource = "timing"

// collectRun is one running collector goroutine.
type collectRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartCollectors feeds the generator from a background goroutine until ctx
// is done or StopCollectors is called. Each tick adds the scheduling jitter
// of the ticker (2 bits) and one word from the system source (32 bits).
// Calling it while collectors run has no effect.
func (g *Generator) StartCollectors(ctx context.Context, interval time.Duration) {
	g.collectMu.Lock()
	defer g.collectMu.Unlock()

	if g.collectRun != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	run := &collectRun{cancel: cancel, done: make(chan struct{})}
	g.collectRun = run

	go g.collect(ctx, interval, run)
}

// CollectorsRunning reports whether a collector goroutine is active.
func (g *Generator) CollectorsRunning() bool {
	g.collectMu.Lock()
	defer g.collectMu.Unlock()
	return g.collectRun != nil
}

// StopCollectors stops the collectors and waits for them to exit.
func (g *Generator) StopCollectors() {
	g.collectMu.Lock()
	run := g.collectRun
	g.collectRun = nil
	g.collectMu.Unlock()

	if run == nil {
		return
	}
	run.cancel()
	<-run.done
}

func (g *Generator) collect(ctx context.Context, interval time.Duration, run *collectRun) {
	defer func() {
		run.cancel()
		g.collectMu.Lock()
		if g.collectRun == run {
			g.collectRun = nil
		}
		g.collectMu.Unlock()
		close(run.done)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			jitter := uint64(tick.Sub(last).Nanoseconds())
			last = tick

			if err := g.AddEntropy([]uint32{uint32(jitter >> 32), uint32(jitter)}, 2, timingSource); err != nil {
				g.log.WithError(err).Warnln("Can't add timing entropy")
			}

			words, err := g.readSystemWords(1)
			if err != nil {
				g.log.WithError(err).Warnln("Can't read system entropy")
				continue
			}
			if err := g.AddEntropy(words[0], 32, systemSource); err != nil {
				g.log.WithError(err).Warnln("Can't add system entropy")
			}
		}
	}
}
