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
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aditya/rideshare/internal/config"
	"github.com/aditya/rideshare/internal/middleware"
	"github.com/aditya/rideshare/internal/models"
)

const (
	baseLat = 27.7172
	baseLng = 85.3240
)

var baseURL = "http://localhost:8080"

type Stats struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalLatency    int64
	MinLatency      int64
	MaxLatency      int64
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

type account struct {
	ID    string
	Token string
}

var auth *middleware.Authenticator

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if url := os.Getenv("LOADTEST_URL"); url != "" {
		baseURL = url
	}
	auth = middleware.NewAuthenticator(cfg.JWTSecret)

	fmt.Println("Rideshare Load Test")
	fmt.Println("===================")

	fmt.Println("\n1. Creating test data...")
	riders, drivers := createTestData(20, 50)
	if len(riders) == 0 || len(drivers) == 0 {
		log.Fatal("Failed to create test data")
	}
	fmt.Printf("Created %d riders and %d drivers\n", len(riders), len(drivers))

	fmt.Println("\n2. Testing Location Updates (1000 updates, 50 concurrent)...")
	printStats("Location Updates", testLocationUpdates(drivers, 1000, 50))

	fmt.Println("\n3. Testing Ride Requests (100 requests, 10 concurrent)...")
	printStats("Ride Requests", testRideRequests(riders, 100, 10))

	fmt.Println("\n4. Testing Accept Races (10 requests, every driver racing)...")
	testAcceptRaces(riders, drivers, 10)

	fmt.Println("\nLoad test completed!")
}

func call(method, path, token string, payload interface{}, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func createAccount(name, phonePrefix string, role models.Role) (account, bool) {
	var user struct {
		ID string `json:"id"`
	}
	status, err := call(http.MethodPost, "/v1/users", "", map[string]string{
		"phone":     fmt.Sprintf("%s%08d", phonePrefix, rand.Intn(100000000)),
		"name":      name,
		"user_type": string(role),
	}, &user)
	if err != nil || status != http.StatusCreated {
		return account{}, false
	}

	token, err := auth.IssueToken(user.ID, role, time.Hour)
	if err != nil {
		return account{}, false
	}
	return account{ID: user.ID, Token: token}, true
}

func randomPoint() (float64, float64) {
	return baseLat + (rand.Float64()-0.5)*0.1, baseLng + (rand.Float64()-0.5)*0.1
}

func createTestData(numRiders, numDrivers int) ([]account, []account) {
	riders := make([]account, 0, numRiders)
	drivers := make([]account, 0, numDrivers)

	for i := 0; i < numRiders; i++ {
		if a, ok := createAccount(fmt.Sprintf("LoadTest Rider %d", i), "98", models.RoleRider); ok {
			riders = append(riders, a)
		}
	}

	for i := 0; i < numDrivers; i++ {
		a, ok := createAccount(fmt.Sprintf("LoadTest Driver %d", i), "97", models.RoleDriver)
		if !ok {
			continue
		}
		status, err := call(http.MethodPost, "/v1/drivers", a.Token, map[string]string{
			"license_number": fmt.Sprintf("LT%07d", rand.Intn(10000000)),
			"vehicle_type":   models.RideTypeStandard,
			"vehicle_number": fmt.Sprintf("BA %d PA %04d", rand.Intn(99), rand.Intn(10000)),
		}, nil)
		if err != nil || status != http.StatusCreated {
			continue
		}

		lat, lng := randomPoint()
		call(http.MethodPost, "/v1/drivers/me/location", a.Token, map[string]float64{"latitude": lat, "longitude": lng}, nil)
		call(http.MethodPost, "/v1/drivers/me/availability", a.Token, map[string]bool{"is_available": true}, nil)
		drivers = append(drivers, a)
	}

	return riders, drivers
}

func testLocationUpdates(drivers []account, numRequests, concurrency int) *Stats {
	stats := newStats()
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(driver account) {
			defer wg.Done()
			defer func() { <-semaphore }()

			lat, lng := randomPoint()
			start := time.Now()
			status, err := call(http.MethodPost, "/v1/drivers/me/location", driver.Token,
				map[string]float64{"latitude": lat, "longitude": lng}, nil)
			stats.record(time.Since(start).Milliseconds(), err == nil && status == http.StatusOK)
		}(drivers[rand.Intn(len(drivers))])
	}

	wg.Wait()
	return stats
}

func requestRide(rider account) (string, int, error) {
	pickupLat, pickupLng := randomPoint()
	destLat, destLng := randomPoint()

	var request struct {
		ID string `json:"id"`
	}
	status, err := call(http.MethodPost, "/v1/rides/requests", rider.Token, map[string]interface{}{
		"pickup_latitude":       pickupLat,
		"pickup_longitude":      pickupLng,
		"pickup_address":        "Load test pickup",
		"destination_latitude":  destLat,
		"destination_longitude": destLng,
		"destination_address":   "Load test destination",
		"ride_type":             models.RideTypeStandard,
	}, &request)
	return request.ID, status, err
}

func testRideRequests(riders []account, numRequests, concurrency int) *Stats {
	stats := newStats()
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(rider account) {
			defer wg.Done()
			defer func() { <-semaphore }()

			start := time.Now()
			id, status, err := requestRide(rider)
			stats.record(time.Since(start).Milliseconds(), err == nil && status == http.StatusCreated)

			// leave the pool clean for the accept races
			if id != "" {
				call(http.MethodPost, "/v1/rides/requests/"+id+"/cancel", rider.Token, nil, nil)
			}
		}(riders[rand.Intn(len(riders))])
	}

	wg.Wait()
	return stats
}

// testAcceptRaces has every driver accept the same request at once. Exactly
// one accept per request may win.
func testAcceptRaces(riders, drivers []account, rounds int) {
	violations := 0

	for round := 0; round < rounds; round++ {
		rider := riders[rand.Intn(len(riders))]
		requestID, status, err := requestRide(rider)
		if err != nil || status != http.StatusCreated {
			fmt.Printf("  round %d: could not create request (%d)\n", round, status)
			continue
		}

		var (
			wg      sync.WaitGroup
			winners int64
			rideID  atomic.Value
			winner  atomic.Value
		)
		for _, d := range drivers {
			wg.Add(1)
			go func(driver account) {
				defer wg.Done()
				var ride struct {
					ID string `json:"id"`
				}
				status, err := call(http.MethodPost, "/v1/rides/requests/"+requestID+"/accept", driver.Token, nil, &ride)
				if err == nil && status == http.StatusCreated {
					atomic.AddInt64(&winners, 1)
					rideID.Store(ride.ID)
					winner.Store(driver)
				}
			}(d)
		}
		wg.Wait()

		fmt.Printf("  round %d: %d winner(s) out of %d drivers\n", round, winners, len(drivers))
		if winners != 1 {
			violations++
		}

		// cancelling releases the winning driver for the next round
		if id, ok := rideID.Load().(string); ok {
			d := winner.Load().(account)
			call(http.MethodPost, "/v1/rides/"+id+"/cancel", d.Token, map[string]string{"reason": "load test"}, nil)
		}
	}

	if violations > 0 {
		fmt.Printf("\nAccept races: %d round(s) did not have exactly one winner\n", violations)
		return
	}
	fmt.Println("\nAccept races: every round had exactly one winner")
}

func printStats(name string, stats *Stats) {
	avgLatency := float64(0)
	if stats.TotalRequests > 0 {
		avgLatency = float64(stats.TotalLatency) / float64(stats.TotalRequests)
	}

	fmt.Printf("\n%s Results:\n", name)
	fmt.Printf("  Total Requests:   %d\n", stats.TotalRequests)
	fmt.Printf("  Successful:       %d\n", stats.SuccessRequests)
	fmt.Printf("  Failed:           %d\n", stats.FailedRequests)
	if stats.TotalRequests > 0 {
		fmt.Printf("  Success Rate:     %.2f%%\n", float64(stats.SuccessRequests)/float64(stats.TotalRequests)*100)
	}
	fmt.Printf("  Avg Latency:      %.2f ms\n", avgLatency)
	if stats.MinLatency != int64(^uint64(0)>>1) {
		fmt.Printf("  Min Latency:      %d ms\n", stats.MinLatency)
	}
	fmt.Printf("  Max Latency:      %d ms\n", stats.MaxLatency)
}
