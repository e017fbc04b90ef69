//go:build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL = "http://localhost:8080"
	baseLat = 51.5074
	baseLng = -0.1278
)

type Stats struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalLatency    int64
	MinLatency      int64
	MaxLatency      int64
	Elapsed         time.Duration
}

func newStats() *Stats {
	return &Stats{MinLatency: int64(^uint64(0) >> 1)}
}

func (s *Stats) record(latency int64, ok bool) {
	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.TotalLatency, latency)
	if !ok {
		atomic.AddInt64(&s.FailedRequests, 1)
		return
	}
	atomic.AddInt64(&s.SuccessRequests, 1)
	for {
		old := atomic.LoadInt64(&s.MinLatency)
		if latency >= old || atomic.CompareAndSwapInt64(&s.MinLatency, old, latency) {
			break
		}
	}
	for {
		old := atomic.LoadInt64(&s.MaxLatency)
		if latency <= old || atomic.CompareAndSwapInt64(&s.MaxLatency, old, latency) {
			break
		}
	}
}

type quote struct {
	ID string `json:"id"`
}

type submitResponse struct {
	RideRequest struct {
		ID string `json:"id"`
	} `json:"rideRequest"`
	Quotes []quote `json:"quotes"`
}

func main() {
	fmt.Println("RideQuote Load Test")
	fmt.Println("===================")

	fmt.Println("\n1. Discovering online drivers (run scripts/seed_data.go first)...")
	driverIDs := discoverDrivers()
	if len(driverIDs) == 0 {
		log.Fatal("No online drivers near central London")
	}
	fmt.Printf("Found %d drivers\n", len(driverIDs))

	fmt.Println("\n2. Testing Location Updates (1000 updates, 50 concurrent)...")
	printStats("Location Updates", testLocationUpdates(driverIDs, 1000, 50))

	fmt.Println("\n3. Testing Ride Submission (100 rides, 10 concurrent)...")
	printStats("Ride Submission", testRideSubmission(100, 10))

	fmt.Println("\n4. Racing accepts on one ride (20 rounds)...")
	testAcceptRace(20)

	fmt.Println("\nLoad test completed!")
}

func randomPoint(spread float64) map[string]float64 {
	return map[string]float64{
		"lat": baseLat + (rand.Float64()-0.5)*spread,
		"lng": baseLng + (rand.Float64()-0.5)*spread*1.6,
	}
}

func discoverDrivers() []string {
	resp, err := http.Get(fmt.Sprintf("%s/drivers/nearby?lat=%f&lng=%f&radius=15", baseURL, baseLat, baseLng))
	if err != nil {
		log.Printf("nearby lookup failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	var result struct {
		Drivers []struct {
			ID string `json:"id"`
		} `json:"drivers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("decode nearby: %v", err)
		return nil
	}
	ids := make([]string, 0, len(result.Drivers))
	for _, d := range result.Drivers {
		ids = append(ids, d.ID)
	}
	return ids
}

func drain(resp *http.Response) {
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

func testLocationUpdates(driverIDs []string, numRequests, concurrency int) *Stats {
	stats := newStats()
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)
	begin := time.Now()

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(driverID string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			body, _ := json.Marshal(randomPoint(0.1))
			start := time.Now()
			resp, err := http.Post(baseURL+"/drivers/"+driverID+"/location", "application/json", bytes.NewBuffer(body))
			stats.record(time.Since(start).Milliseconds(), err == nil && resp.StatusCode == http.StatusOK)
			drain(resp)
		}(driverIDs[rand.Intn(len(driverIDs))])
	}

	wg.Wait()
	stats.Elapsed = time.Since(begin)
	return stats
}

func submitRide(idx int) (*submitResponse, int, error) {
	ride := map[string]interface{}{
		"customer_name":  fmt.Sprintf("Load Rider %d", idx),
		"customer_phone": fmt.Sprintf("+447700%06d", idx),
		"pickup":         randomPoint(0.04),
		"destination":    randomPoint(0.2),
		"ride_class":     "standard",
	}
	body, _ := json.Marshal(ride)

	req, _ := http.NewRequest(http.MethodPost, baseURL+"/rides/request", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", fmt.Sprintf("load-test-ride-%d-%d", idx, time.Now().UnixNano()))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, resp.StatusCode, err
	}
	return &out, resp.StatusCode, nil
}

func testRideSubmission(numRequests, concurrency int) *Stats {
	stats := newStats()
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)
	begin := time.Now()

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			start := time.Now()
			_, code, err := submitRide(idx)
			stats.record(time.Since(start).Milliseconds(), err == nil && code == http.StatusCreated)
		}(i)
	}

	wg.Wait()
	stats.Elapsed = time.Since(begin)
	return stats
}

// testAcceptRace submits a ride and fires every returned quote's accept at
// once. Exactly one accept per round should win.
func testAcceptRace(rounds int) {
	var violations, skipped int
	byStatus := map[int]int{}

	for round := 0; round < rounds; round++ {
		ride, code, err := submitRide(100000 + round)
		if err != nil || ride == nil || len(ride.Quotes) < 2 {
			skipped++
			if err != nil {
				log.Printf("round %d: submit failed (%d): %v", round, code, err)
			}
			continue
		}

		codes := make([]int, len(ride.Quotes))
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i, q := range ride.Quotes {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				<-start
				resp, err := http.Post(baseURL+"/rides/accept/"+id, "application/json", nil)
				if err != nil {
					return
				}
				codes[i] = resp.StatusCode
				drain(resp)
			}(i, q.ID)
		}
		close(start)
		wg.Wait()

		wins := 0
		for _, c := range codes {
			byStatus[c]++
			if c == http.StatusOK {
				wins++
			}
		}
		if wins != 1 {
			violations++
			log.Printf("round %d: %d winners across %d quotes", round, wins, len(codes))
		}
	}

	fmt.Printf("\nAccept Race Results:\n")
	fmt.Printf("  Rounds:           %d (%d skipped for lack of quotes)\n", rounds, skipped)
	fmt.Printf("  Status counts:    %v\n", byStatus)
	fmt.Printf("  Violations:       %d\n", violations)
}

func printStats(name string, stats *Stats) {
	avgLatency := float64(0)
	successRate := float64(0)
	if stats.TotalRequests > 0 {
		avgLatency = float64(stats.TotalLatency) / float64(stats.TotalRequests)
		successRate = float64(stats.SuccessRequests) / float64(stats.TotalRequests) * 100
	}

	fmt.Printf("\n%s Results:\n", name)
	fmt.Printf("  Total Requests:   %d\n", stats.TotalRequests)
	fmt.Printf("  Successful:       %d\n", stats.SuccessRequests)
	fmt.Printf("  Failed:           %d\n", stats.FailedRequests)
	fmt.Printf("  Success Rate:     %.2f%%\n", successRate)
	fmt.Printf("  Avg Latency:      %.2f ms\n", avgLatency)
	if stats.MinLatency != int64(^uint64(0)>>1) {
		fmt.Printf("  Min Latency:      %d ms\n", stats.MinLatency)
	}
	fmt.Printf("  Max Latency:      %d ms\n", stats.MaxLatency)
	if stats.Elapsed > 0 {
		fmt.Printf("  Throughput:       %.0f req/s\n", float64(stats.TotalRequests)/stats.Elapsed.Seconds())
	}
}
