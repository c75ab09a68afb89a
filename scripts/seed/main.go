package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vendorpulse/vendorpulse/internal/app"
	"github.com/vendorpulse/vendorpulse/internal/events"
	"github.com/vendorpulse/vendorpulse/internal/store"
)

//go:embed fixtures.json
var defaultFixture []byte

func main() {
	file := flag.String("file", "", "JSON fixture with vendors, products and orders (defaults to the bundled demo data)")
	publish := flag.Bool("publish", false, "emit order.paid events to Kafka for every inserted order")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	raw := defaultFixture
	if *file != "" {
		if raw, err = os.ReadFile(*file); err != nil {
			log.Fatalf("read fixture: %v", err)
		}
	}
	fx, err := parseFixture(raw)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backend, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = backend.Close(context.Background()) }()

	var pub publisher
	if *publish {
		if !cfg.KafkaEnabled() {
			log.Fatalf("-publish needs KAFKA_BROKERS and ORDER_EVENTS_TOPIC")
		}
		p := events.NewPublisher(events.SplitBrokers(cfg.KafkaBrokers...), cfg.OrderEventsTopic)
		defer func() { _ = p.Close() }()
		pub = p
	}

	fmt.Printf("→ Seeding %s store...\n", backend.Driver)
	sum, err := load(ctx, backend, fx, pub)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Printf("  vendors=%d products=%d orders=%d\n", sum.Vendors, sum.Products, sum.Orders)
	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}
