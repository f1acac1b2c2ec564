package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/annel0/worldgen/internal/eventbus"
	"github.com/annel0/worldgen/internal/world"
)

const (
	defaultServerAddr = "nats://127.0.0.1:4222"
	timeFormat        = "2006-01-02T15:04:05Z"
)

func main() {
	var (
		serverAddr = flag.String("server", defaultServerAddr, "NATS server URL")
		stream     = flag.String("stream", "WORLDGEN", "JetStream stream name")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated), e.g. world.generated,world.region_failed")
		limit      = flag.Int("limit", 100, "Maximum number of events (0 - unlimited)")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
		wait       = flag.Duration("wait", 2*time.Second, "Idle time before exit when not following")
		raw        = flag.Bool("raw", false, "Print raw envelope JSON")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*serverAddr, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to connect to server: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tailEvents(ctx, bus, &TailOptions{
		EventTypes: parseStringList(*eventTypes),
		Limit:      *limit,
		Follow:     *follow,
		Wait:       *wait,
		Raw:        *raw,
	}); err != nil {
		log.Fatalf("❌ Tail failed: %v", err)
	}
}

type TailOptions struct {
	EventTypes []string
	Limit      int
	Follow     bool
	Wait       time.Duration
	Raw        bool
}

// tailEvents выводит события генератора из стрима
func tailEvents(ctx context.Context, bus eventbus.EventBus, opts *TailOptions) error {
	fmt.Printf("🎬 Tailing worldgen events (limit: %d, follow: %v)\n", opts.Limit, opts.Follow)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var count atomic.Int64
	activity := make(chan struct{}, 1)

	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: opts.EventTypes}, func(_ context.Context, ev *eventbus.Envelope) {
		if ctx.Err() != nil {
			return
		}
		n := count.Add(1)
		if opts.Limit > 0 && n > int64(opts.Limit) {
			cancel()
			return
		}
		if opts.Raw {
			data, _ := json.Marshal(ev)
			fmt.Println(string(data))
		} else {
			printEvent(ev)
		}
		select {
		case activity <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	idle := time.NewTimer(opts.Wait)
	defer idle.Stop()
	for {
		select {
		case <-ctx.Done():
			total := count.Load()
			if opts.Limit > 0 {
				total = min(total, int64(opts.Limit))
			}
			fmt.Printf("\n📊 Total events: %d\n", total)
			return nil
		case <-activity:
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(opts.Wait)
		case <-idle.C:
			if opts.Follow {
				idle.Reset(opts.Wait)
				continue
			}
			fmt.Printf("\n📊 Total events: %d\n", count.Load())
			return nil
		}
	}
}

// printEvent выводит событие в человекочитаемом виде
func printEvent(ev *eventbus.Envelope) {
	ts := ev.Timestamp.UTC().Format(timeFormat)
	fmt.Printf("[%s] %s (%s)\n", ts, ev.EventType, ev.ID)

	switch ev.EventType {
	case world.EventWorldGenerated:
		var p world.WorldGeneratedEvent
		if err := ev.Decode(&p); err == nil {
			fmt.Printf("  🌍 generation=%s seed=%q regions=%d failed=%d took=%s regenerated=%v\n",
				p.GenerationID, p.Seed, p.Regions, len(p.Failed), p.Duration, p.Regenerated)
			return
		}
	case world.EventRegionFailed:
		var p world.RegionFailedEvent
		if err := ev.Decode(&p); err == nil {
			fmt.Printf("  ❌ %+v\n", p)
			return
		}
	case world.EventPathCommitted:
		var p world.PathCommittedEvent
		if err := ev.Decode(&p); err == nil {
			fmt.Printf("  🛤️  %+v\n", p)
			return
		}
	}
	fmt.Printf("  📋 %s\n", string(ev.Payload))
}

// parseStringList разбирает строку через запятую
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nTails worldgen lifecycle events from NATS JetStream.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
}
