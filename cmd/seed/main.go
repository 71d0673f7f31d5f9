// Command seed populates a running raseed API with sample expenses and
// insight queries. Useful for local development and demo setups.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/i-dipanshu/project-raseed/internal/log"
)

var sampleExpenses = map[string][]string{
	"user-one": {
		"Restaurant bill ₹4,800 at Barbeque Nation. Priya owes ₹1,200, Ankit owes ₹800, I owe ₹800, Rajesh covers the rest.",
		"House party supplies: Decorations ₹1,500, Alcohol ₹3,600 split among me, Arjun, Vikram, Snacks ₹2,400 split equally among all 6.",
		"Goa trip Day 1: Hotel ₹6,000 split 4 ways, Flight tickets ₹8,000 for me and Ishita, Cab ₹1,200 split 4 ways, Dinner ₹2,800.",
		"Monthly bills: Electricity ₹2,400, Internet ₹1,800 split equally among all 3, Gas ₹1,200 split with Siddharth.",
		"Grocery run: Vegetables ₹800 split between me and Neha, Rice ₹450 my personal, Shared spices ₹240 split 3 ways with Neha and Varun.",
		"Team lunch at food court ₹1,740, we split between me, Yash, Kritika, Anil, Ritu and Sagar.",
		"Coffee for myself ₹180 at Blue Tokai.",
	},
}

var insightQueries = []struct {
	Query string `json:"query"`
	Tags  string `json:"tags"`
}{
	{"What are my spending patterns and trends?", "spending,patterns,trends"},
	{"Which friends do I spend the most money with?", "social,friends,spending"},
	{"What categories of expenses am I spending the most on?", "categories,analysis,breakdown"},
	{"How do my shared expenses compare to personal expenses?", "shared,personal,comparison"},
}

func main() {
	_ = godotenv.Load()

	baseURL := flag.String("url", "http://127.0.0.1:8081", "base URL of the running API")
	delay := flag.Duration("delay", 3*time.Second, "pause between requests, keeps the model quota happy")
	skipInsights := flag.Bool("skip-insights", false, "seed expenses only")
	flag.Parse()

	logger := log.New(log.DefaultConfig()).WithComponent("seed")

	if err := waitHealthy(*baseURL); err != nil {
		logger.Error("API server is not reachable", log.FieldError, err.Error(), "url", *baseURL)
		os.Exit(1)
	}
	logger.Info("API server is healthy, seeding", "url", *baseURL)

	client := &http.Client{Timeout: 90 * time.Second}

	for userID, texts := range sampleExpenses {
		logger.Info("Seeding expenses", log.FieldUserID, userID, "count", len(texts))
		for i, text := range texts {
			if err := post(client, *baseURL+"/parse-expense", userID, map[string]string{"text": text}); err != nil {
				logger.Error("Failed to add expense", log.FieldError, err.Error(), log.FieldUserID, userID)
				break
			}
			logger.Info("Expense added", "progress", fmt.Sprintf("%d/%d", i+1, len(texts)))
			time.Sleep(*delay)
		}
	}

	if *skipInsights {
		logger.Info("Seeding complete")
		return
	}

	for userID := range sampleExpenses {
		logger.Info("Generating insights", log.FieldUserID, userID)
		for _, query := range insightQueries {
			if err := post(client, *baseURL+"/insights/generate", userID, query); err != nil {
				logger.Error("Failed to generate insight", log.FieldError, err.Error(), log.FieldUserID, userID)
				break
			}
			time.Sleep(*delay)
		}
	}

	logger.Info("Seeding complete")
}

func waitHealthy(baseURL string) error {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		resp, err := http.Get(baseURL + "/health-check")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			lastErr = fmt.Errorf("health check returned %d", resp.StatusCode)
		} else {
			lastErr = err
		}
		time.Sleep(2 * time.Second)
	}
	return lastErr
}

func post(client *http.Client, url, userID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+userID)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, e.Error)
	}
	return nil
}
