package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/procflow"
	"github.com/meikuraledutech/procflow/memory"
	"github.com/meikuraledutech/procflow/postgres"
)

func main() {
	ctx := context.Background()

	// Postgres when DATABASE_URL is set, otherwise everything stays in memory.
	var store procflow.Store = memory.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Sequential flow from a task list ──────────────────────────────
	p := procflow.NewProcess("Employee onboarding", []procflow.Task{
		{Text: "Collect signed contract", Due: "2024-03-11"},
		{Text: "Create accounts", Due: "2024-03-12"},
		{Text: "Schedule first-week meetings"},
	})
	fmt.Println("process created")
	printJSON(p.Graph)

	// ── Assign steps and set deadlines ────────────────────────────────
	var steps []string
	for _, n := range p.Graph.Nodes {
		if n.IsStep() {
			steps = append(steps, n.ID)
		}
	}
	patches := []string{
		`{"assignee": "hr-lead", "deadline": {"type": "relative", "value": "1", "unit": "days"}}`,
		`{"assignmentType": "role", "role": "it-support", "deadline": {"type": "relative", "value": "3", "unit": "days"}}`,
		`{"assignee": "manager", "deadline": {"type": "absolute", "at": "2024-03-15T09:00:00Z"}}`,
	}
	for i, patch := range patches {
		if err := p.UpdateNodeAttributes(steps[i], json.RawMessage(patch)); err != nil {
			log.Fatalf("update node: %v", err)
		}
	}
	fmt.Println("\nprocess deadline:")
	printJSON(p.Deadline)

	// ── Work the first step ───────────────────────────────────────────
	now := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	if err := p.CompleteTask(p.Tasks[0].ID, "hr-lead", now); err != nil {
		log.Fatalf("complete task: %v", err)
	}
	if _, err := p.SubmitOutput(steps[0], procflow.Payload{
		Type:     procflow.OutputFile,
		FileName: "contract.pdf",
	}, "hr-lead", now.Add(15*time.Minute)); err != nil {
		log.Fatalf("submit output: %v", err)
	}

	// ── Persist and reload ────────────────────────────────────────────
	if err := store.SaveProcess(ctx, p); err != nil {
		log.Fatalf("save: %v", err)
	}
	loaded, err := store.GetProcess(ctx, p.ID)
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	loaded.Refresh()
	fmt.Println("\nprocess reloaded")

	fmt.Println("\nstatus:")
	printJSON(loaded.Status(nil))

	entries, err := loaded.Log(steps[0])
	if err != nil {
		log.Fatalf("log: %v", err)
	}
	fmt.Println("\ncompletion log:")
	for _, e := range entries {
		fmt.Println("  " + e.Text)
	}

	cal := loaded.Calendar(time.UTC)
	fmt.Println("\ncalendar, March 2024:")
	printJSON(cal.Days(2024, time.March))

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteProcess(ctx, p.ID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nprocess deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
