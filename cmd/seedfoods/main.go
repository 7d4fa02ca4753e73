// Seed tool for loading a food catalog CSV into a running mealplanner.
//
// Usage:
//   go run cmd/seedfoods/main.go -csv /path/to/foods.csv -url http://localhost:8080 -email admin@example.com -password secret
//
// This tool:
//   1. Checks the server is healthy
//   2. Logs in (or registers the account if it does not exist)
//   3. Reads the CSV (name, category, calories, protein, carbs, fat,
//      fiber, serving_size, unit, non_inflammatory)
//   4. POSTs each food concurrently and reports created/duplicate/error counts
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// FoodRow is a parsed CSV row.
type FoodRow struct {
	Name            string
	Category        string
	Calories        float64
	Protein         float64
	Carbs           float64
	Fat             float64
	Fiber           float64
	ServingSize     float64
	Unit            string
	NonInflammatory bool
}

// FoodRequest is the mealplanner API request format.
type FoodRequest struct {
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Calories        float64 `json:"calories"`
	Protein         float64 `json:"protein"`
	Carbs           float64 `json:"carbs"`
	Fat             float64 `json:"fat"`
	Fiber           float64 `json:"fiber"`
	ServingSize     float64 `json:"servingSize"`
	Unit            string  `json:"unit"`
	NonInflammatory bool    `json:"nonInflammatory"`
}

// Metrics tracks import results.
type Metrics struct {
	Created    int64
	Duplicates int64
	Rejected   int64
	Errors     int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to food catalog CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Mealplanner base URL")
	email := flag.String("email", "", "Account email")
	password := flag.String("password", "", "Account password")
	limit := flag.Int("limit", 0, "Maximum foods to import (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each food result")
	flag.Parse()

	if *csvPath == "" || *email == "" || *password == "" {
		fmt.Println("Usage: seedfoods -csv /path/to/foods.csv -email you@example.com -password secret [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Printf("CSV File:  %s\n", *csvPath)
	fmt.Printf("Server:    %s\n", *baseURL)
	fmt.Printf("Workers:   %d\n", *workers)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: mealplanner not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure the server is running:")
		fmt.Println("  go run cmd/mealplanner/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ server is healthy")

	token, err := login(*baseURL, *email, *password)
	if err != nil {
		fmt.Printf("ERROR: login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ authenticated")

	foods, err := readFoodCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ loaded %d foods\n\n", len(foods))

	startTime := time.Now()
	metrics := runImport(foods, *baseURL, token, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, len(foods), duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// login authenticates and falls back to registering the account.
func login(baseURL, email, password string) (string, error) {
	token, err := postAuth(baseURL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err == nil {
		return token, nil
	}

	return postAuth(baseURL+"/api/auth/register", map[string]string{
		"email":    email,
		"username": strings.SplitN(email, "@", 2)[0],
		"password": password,
	})
}

func postAuth(url string, body map[string]string) (string, error) {
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("no access token in response")
	}
	return out.AccessToken, nil
}

func readFoodCSV(path string, limit int) ([]FoodRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	get := func(record []string, name string) string {
		i, ok := colIndex[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	getFloat := func(record []string, name string) float64 {
		v, _ := strconv.ParseFloat(get(record, name), 64)
		return v
	}

	var foods []FoodRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		row := FoodRow{
			Name:            get(record, "name"),
			Category:        strings.ToUpper(get(record, "category")),
			Calories:        getFloat(record, "calories"),
			Protein:         getFloat(record, "protein"),
			Carbs:           getFloat(record, "carbs"),
			Fat:             getFloat(record, "fat"),
			Fiber:           getFloat(record, "fiber"),
			ServingSize:     getFloat(record, "serving_size"),
			Unit:            get(record, "unit"),
			NonInflammatory: get(record, "non_inflammatory") == "1" || strings.EqualFold(get(record, "non_inflammatory"), "true"),
		}
		if row.Name == "" {
			continue
		}
		if row.ServingSize == 0 {
			row.ServingSize = 100
		}
		if row.Unit == "" {
			row.Unit = "g"
		}

		foods = append(foods, row)

		if limit > 0 && len(foods) >= limit {
			break
		}
	}

	return foods, nil
}

func runImport(foods []FoodRow, baseURL, token string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan FoodRow, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for row := range work {
				status, err := postFood(client, baseURL, token, row)
				switch {
				case err != nil:
					atomic.AddInt64(&metrics.Errors, 1)
					if verbose {
						fmt.Printf("  ✗ %-30s error: %v\n", row.Name, err)
					}
				case status == http.StatusCreated:
					atomic.AddInt64(&metrics.Created, 1)
					if verbose {
						fmt.Printf("  ✓ %-30s created\n", row.Name)
					}
				case status == http.StatusConflict:
					atomic.AddInt64(&metrics.Duplicates, 1)
					if verbose {
						fmt.Printf("  - %-30s already exists\n", row.Name)
					}
				default:
					atomic.AddInt64(&metrics.Rejected, 1)
					if verbose {
						fmt.Printf("  ✗ %-30s rejected (status %d)\n", row.Name, status)
					}
				}
			}
		}()
	}

	for _, row := range foods {
		work <- row
	}
	close(work)
	wg.Wait()

	return metrics
}

func postFood(client *http.Client, baseURL, token string, row FoodRow) (int, error) {
	body := FoodRequest{
		Name:            row.Name,
		Category:        row.Category,
		Calories:        row.Calories,
		Protein:         row.Protein,
		Carbs:           row.Carbs,
		Fat:             row.Fat,
		Fiber:           row.Fiber,
		ServingSize:     row.ServingSize,
		Unit:            row.Unit,
		NonInflammatory: row.NonInflammatory,
	}

	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/foods", bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func printResults(m *Metrics, total int, duration time.Duration) {
	fmt.Println()
	fmt.Println("Import complete")
	fmt.Printf("  Total:      %d\n", total)
	fmt.Printf("  Created:    %d\n", m.Created)
	fmt.Printf("  Duplicates: %d\n", m.Duplicates)
	fmt.Printf("  Rejected:   %d\n", m.Rejected)
	fmt.Printf("  Errors:     %d\n", m.Errors)
	fmt.Printf("  Duration:   %s (%.1f foods/sec)\n", duration.Round(time.Millisecond), float64(total)/duration.Seconds())
}
