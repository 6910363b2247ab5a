// Command http_load drives a running API server with a mixed workload of
// posts and feed reads and reports latency statistics.
package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// TokenResp represents the response returned by POST /tokens
type TokenResp struct {
	Token     string `json:"token"`
	AccountID int64  `json:"account_id"`
}

type loadUser struct {
	Name  string
	Token string
}

type client struct {
	http   *http.Client
	server string
}

func (c *client) do(method, path, token string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, c.server+path, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

func main() {
	// --- Command-line flags ---
	var server string
	var duration int
	var concurrency int
	var follows int
	var postRatio float64
	var csvFile string
	var trimPercent float64
	var insecure bool

	flag.StringVar(&server, "server", "http://localhost:8080", "server base URL")
	flag.IntVar(&duration, "duration", 30, "duration in seconds")
	flag.IntVar(&concurrency, "c", 50, "number of concurrent goroutines / users")
	flag.IntVar(&follows, "follows", 10, "accounts each user follows")
	flag.Float64Var(&postRatio, "posts", 0.2, "share of requests that create posts, the rest read the feed")
	flag.StringVar(&csvFile, "csv", "latencies.csv", "CSV file to save latencies")
	flag.Float64Var(&trimPercent, "trim", 1.0, "percent of latency to trim from top and bottom for trimmed mean")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	flag.Parse()

	c := &client{
		http: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure},
			},
			Timeout: 10 * time.Second,
		},
		server: server,
	}

	// --- Create users for each goroutine ---
	fmt.Printf("Creating %d users...\n", concurrency)
	users := make([]loadUser, concurrency)
	runID := time.Now().UnixNano()
	for i := range users {
		name := fmt.Sprintf("load-%d-%d", runID%1_000_000, i)
		creds := map[string]string{"username": name, "email": name + "@load.test", "password": "load-password"}

		if status, body, err := c.do(http.MethodPost, "/users", "", creds); err != nil || status != http.StatusCreated {
			panic(fmt.Sprintf("failed to create user: status=%d err=%v body=%s", status, err, body))
		}
		status, body, err := c.do(http.MethodPost, "/tokens", "", creds)
		if err != nil || status != http.StatusOK {
			panic(fmt.Sprintf("failed to log in: status=%d err=%v body=%s", status, err, body))
		}
		var tok TokenResp
		if err := json.Unmarshal(body, &tok); err != nil {
			panic(fmt.Sprintf("failed to decode token response: %v", err))
		}
		users[i] = loadUser{Name: name, Token: tok.Token}
	}

	// --- Build the follow graph: user i follows the next `follows` users ---
	for i, u := range users {
		for k := 1; k <= follows && k < len(users); k++ {
			target := users[(i+k)%len(users)]
			if status, body, err := c.do(http.MethodPost, "/follow/"+target.Name, u.Token, nil); err != nil || status != http.StatusOK {
				fmt.Printf("follow failed: status=%d err=%v body=%s\n", status, err, body)
			}
		}
	}
	fmt.Println("Users created and connected.")

	// --- Prepare concurrency test ---
	stopTime := time.Now().Add(time.Duration(duration) * time.Second)
	var wg sync.WaitGroup

	// Atomic counters for thread-safe tracking
	var requests int64
	var successes int64
	var errors4xx int64
	var errors5xx int64

	postLatencies := make([][]float64, concurrency)
	feedLatencies := make([][]float64, concurrency)

	// --- Start concurrent goroutines for load test ---
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			user := users[idx]

			for time.Now().Before(stopTime) {
				isPost := rand.Float64() < postRatio
				start := time.Now()

				var status int
				var err error
				if isPost {
					status, _, err = c.do(http.MethodPost, "/posts", user.Token,
						map[string]string{"body": fmt.Sprintf("load test post %d", time.Now().UnixNano())})
				} else {
					status, _, err = c.do(http.MethodGet, fmt.Sprintf("/feed?page=%d", 1+rand.IntN(3)), user.Token, nil)
				}

				lat := time.Since(start).Seconds() * 1000 // latency in ms
				if isPost {
					postLatencies[idx] = append(postLatencies[idx], lat)
				} else {
					feedLatencies[idx] = append(feedLatencies[idx], lat)
				}
				atomic.AddInt64(&requests, 1)

				if err != nil {
					fmt.Printf("Request error: %v\n", err)
					continue
				}

				// Count success/failure by status code
				switch {
				case status >= 200 && status < 300:
					atomic.AddInt64(&successes, 1)
				case status >= 400 && status < 500:
					atomic.AddInt64(&errors4xx, 1)
				case status >= 500:
					atomic.AddInt64(&errors5xx, 1)
				}
			}
		}(i)
	}

	wg.Wait()

	fmt.Printf("Requests: %d  Successes: %d  4xx: %d  5xx: %d\n", requests, successes, errors4xx, errors5xx)
	posts := merge(postLatencies)
	feeds := merge(feedLatencies)
	report("POST /posts", posts, trimPercent)
	report("GET /feed", feeds, trimPercent)

	// --- Save latencies to CSV ---
	f, err := os.Create(csvFile)
	if err != nil {
		fmt.Printf("Failed to create CSV file: %v\n", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	_ = w.Write([]string{"endpoint", "latency_ms"})
	for _, d := range posts {
		_ = w.Write([]string{"posts", fmt.Sprintf("%.3f", d)})
	}
	for _, d := range feeds {
		_ = w.Write([]string{"feed", fmt.Sprintf("%.3f", d)})
	}
	fmt.Printf("Saved latencies to %s\n", csvFile)
}

func merge(slices [][]float64) []float64 {
	var all []float64
	for _, s := range slices {
		all = append(all, s...)
	}
	sort.Float64s(all)
	return all
}

func report(name string, sorted []float64, trimPercent float64) {
	fmt.Printf("%s: n=%d trimmed_mean=%.2f p50=%.2f p90=%.2f p99=%.2f (ms)\n",
		name, len(sorted), trimmedMean(sorted, trimPercent),
		percentile(sorted, 50), percentile(sorted, 90), percentile(sorted, 99))
}

// trimmedMean calculates mean latency after trimming top/bottom trimPercent values
func trimmedMean(data []float64, trimPercent float64) float64 {
	if len(data) == 0 {
		return 0
	}
	trim := int(float64(len(data)) * trimPercent / 100.0)
	if trim*2 >= len(data) {
		trim = (len(data) - 1) / 2
	}
	trimmed := data[trim : len(data)-trim]
	var sum float64
	for _, v := range trimmed {
		sum += v
	}
	return sum / float64(len(trimmed))
}

// percentile interpolates the p-th percentile of sorted data
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	k := (p / 100.0) * float64(len(data)-1)
	f := int(k)
	c := f + 1
	if c >= len(data) {
		return data[len(data)-1]
	}
	return data[f]*(float64(c)-k) + data[c]*(k-float64(f))
}
