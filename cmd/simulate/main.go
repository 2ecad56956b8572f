// simulate hammers the booking endpoint for a single location and day and
// verifies the capacity invariant held: the number of accepted bookings must
// never exceed the registered capacity, no matter how many workers race.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vaxline/booking-engine/internal/api"
	"github.com/vaxline/booking-engine/internal/booking"
)

type SimConfig struct {
	APIBaseURL string
	AuthSecret string
	Capacity   int
	Attempts   int
	Workers    int
	Day        string
}

type Counters struct {
	Created   int64
	Conflict  int64
	Error     int64
	Latencies struct {
		mu   sync.Mutex
		vals []time.Duration
	}
}

func (c *Counters) record(latency time.Duration, status int) {
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&c.Created, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&c.Conflict, 1)
	default:
		atomic.AddInt64(&c.Error, 1)
	}
	c.Latencies.mu.Lock()
	c.Latencies.vals = append(c.Latencies.vals, latency)
	c.Latencies.mu.Unlock()
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := SimConfig{}
	flag.StringVar(&cfg.APIBaseURL, "base-url", "http://127.0.0.1:8080", "api server base url")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", os.Getenv("AUTH_SECRET"), "credential signing secret")
	flag.IntVar(&cfg.Capacity, "capacity", 10, "capacity to register for the simulated location")
	flag.IntVar(&cfg.Attempts, "attempts", 100, "booking attempts to fire")
	flag.IntVar(&cfg.Workers, "workers", 20, "concurrent workers")
	flag.StringVar(&cfg.Day, "day", time.Now().AddDate(0, 0, 3).Format(booking.DayFormat), "target day")
	flag.Parse()

	if cfg.AuthSecret == "" {
		log.Fatal("auth secret is required (flag -auth-secret or AUTH_SECRET)")
	}

	locationID := uuid.New()
	client := &http.Client{Timeout: 10 * time.Second}

	if err := registerCapacity(client, cfg, locationID); err != nil {
		log.Fatalf("register capacity: %v", err)
	}
	log.Printf("location %s registered with capacity %d on %s", locationID, cfg.Capacity, cfg.Day)

	counters := &Counters{}
	jobs := make(chan int)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				attemptBooking(client, cfg, locationID, counters)
			}
		}()
	}

	for i := 0; i < cfg.Attempts; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	created := atomic.LoadInt64(&counters.Created)
	conflict := atomic.LoadInt64(&counters.Conflict)
	errs := atomic.LoadInt64(&counters.Error)

	log.Printf("attempts=%d created=%d conflict=%d error=%d in %s",
		cfg.Attempts, created, conflict, errs, elapsed)
	log.Printf("latency p50=%s p99=%s", percentile(counters, 0.50), percentile(counters, 0.99))

	if created > int64(cfg.Capacity) {
		log.Fatalf("INVARIANT VIOLATED: %d bookings accepted for capacity %d", created, cfg.Capacity)
	}
	log.Printf("capacity invariant held: %d accepted <= capacity %d", created, cfg.Capacity)
}

func registerCapacity(client *http.Client, cfg SimConfig, locationID uuid.UUID) error {
	cred, err := api.MintCredential(cfg.AuthSecret, api.Identity{Role: api.RoleCentralAuthority}, time.Hour)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]any{
		"location_id": locationID.String(),
		"capacity":    cfg.Capacity,
	})

	req, err := http.NewRequest(http.MethodPost, cfg.APIBaseURL+"/capacity", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cred)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}
	return nil
}

func attemptBooking(client *http.Client, cfg SimConfig, locationID uuid.UUID, counters *Counters) {
	personID := uuid.New()

	cred, err := api.MintCredential(cfg.AuthSecret, api.Identity{Role: api.RolePerson, PersonID: personID}, time.Hour)
	if err != nil {
		counters.record(0, 0)
		return
	}

	body, _ := json.Marshal(map[string]string{
		"person_id":    personID.String(),
		"vaccine_id":   "VAX-COVID-19",
		"vaccine_name": "SARS-CoV-2 mRNA",
		"location_id":  locationID.String(),
		"date":         cfg.Day,
		"time":         "10:00",
	})

	req, err := http.NewRequest(http.MethodPost, cfg.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		counters.record(0, 0)
		return
	}
	req.Header.Set("Authorization", "Bearer "+cred)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		counters.record(latency, 0)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	counters.record(latency, resp.StatusCode)
}

func percentile(c *Counters, p float64) time.Duration {
	c.Latencies.mu.Lock()
	defer c.Latencies.mu.Unlock()

	vals := c.Latencies.vals
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(vals))
	copy(sorted, vals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
