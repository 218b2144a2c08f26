// Aggregates a JSONL telemetry log (DEBATE_TELEMETRY_PATH) into per-status
// counts and timing stats.
// Run with: go run ./scripts/analyze.go <telemetry.jsonl>
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/google/uuid"
)

type debateStats struct {
	status     string
	rounds     int
	violations int
	retries    int
	first      time.Time
	last       time.Time
}

func main() {
	if len(os.Args) != 2 {
		fmt.Println("usage: go run ./scripts/analyze.go <telemetry.jsonl>")
		os.Exit(1)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer f.Close()

	debates := make(map[uuid.UUID]*debateStats)
	lines, skipped := 0, 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e domain.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			skipped++
			continue
		}
		lines++

		d := debates[e.DebateID]
		if d == nil {
			d = &debateStats{first: e.StartedAt, last: e.EndedAt}
			debates[e.DebateID] = d
		}
		if e.StartedAt.Before(d.first) {
			d.first = e.StartedAt
		}
		if e.EndedAt.After(d.last) {
			d.last = e.EndedAt
		}

		switch e.Outcome {
		case domain.OutcomeViolation:
			d.violations++
		case domain.OutcomeRetry:
			d.retries++
		}
		if e.Phase == domain.PhaseTerminated {
			d.status = e.Detail
			d.rounds = e.Round
		}
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("Failed to read log file: %v", err)
	}
	if len(debates) == 0 {
		log.Fatal("No debates found in log file")
	}

	byStatus := make(map[string]int)
	var totalRounds, totalViolations, totalRetries int
	var totalElapsed time.Duration
	finished := 0
	for _, d := range debates {
		status := d.status
		if status == "" {
			status = "incomplete"
		} else {
			finished++
			totalRounds += d.rounds
			totalElapsed += d.last.Sub(d.first)
		}
		byStatus[status]++
		totalViolations += d.violations
		totalRetries += d.retries
	}

	fmt.Printf("Debates:     %d (%d events, %d malformed lines skipped)\n", len(debates), lines, skipped)
	statuses := make([]string, 0, len(byStatus))
	for s := range byStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		n := byStatus[s]
		fmt.Printf("  %-20s %4d (%.0f%%)\n", s, n, float64(n)/float64(len(debates))*100)
	}
	if finished > 0 {
		fmt.Printf("Avg rounds:  %.1f\n", float64(totalRounds)/float64(finished))
		fmt.Printf("Avg elapsed: %s\n", (totalElapsed / time.Duration(finished)).Round(100*time.Millisecond))
	}
	fmt.Printf("Violations:  %d\n", totalViolations)
	fmt.Printf("Retries:     %d\n", totalRetries)
}
