// Command seed loads a small demo directory (doctors, establishments,
// patients, one weekly template) for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	dbURL := flag.String("database-url", getenv("DATABASE_URL", ""), "postgres connection string")
	flag.Parse()

	if *dbURL == "" {
		fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, *dbURL)
	if err != nil {
		fatal(err.Error())
	}
	defer pool.Close()

	statements := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO doctors (id, full_name, speciality, is_active, is_verified)
		  VALUES ($1, $2, $3, TRUE, TRUE) ON CONFLICT (id) DO NOTHING`,
			[]any{"doc-demo-1", "Dr. Priya Mehta", "General Physician"}},
		{`INSERT INTO establishments (id, name, timezone, address)
		  VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			[]any{"est-demo-1", "City Care Clinic", "Asia/Kolkata", "12 MG Road, Bengaluru"}},
		{`INSERT INTO doctor_establishments (doctor_id, establishment_id, fees)
		  VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			[]any{"doc-demo-1", "est-demo-1", "500.00"}},
		{`INSERT INTO patients (id, full_name, phone, email)
		  VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			[]any{"pat-demo-1", "Asha Rao", "+919800000001", "asha@example.com"}},
	}
	for _, st := range statements {
		if _, err := pool.Exec(ctx, st.sql, st.args...); err != nil {
			fatal(err.Error())
		}
	}

	var templateID string
	err = pool.QueryRow(ctx, `
		INSERT INTO availability_templates (id, doctor_id, establishment_id, slot_minutes)
		VALUES ($1, $2, $3, 15)
		ON CONFLICT (doctor_id, establishment_id)
		DO UPDATE SET slot_minutes = EXCLUDED.slot_minutes, deleted_at = NULL, updated_at = now()
		RETURNING id
	`, uuid.NewString(), "doc-demo-1", "est-demo-1").Scan(&templateID)
	if err != nil {
		fatal(err.Error())
	}
	if _, err := pool.Exec(ctx, `DELETE FROM availability_ranges WHERE template_id = $1`, templateID); err != nil {
		fatal(err.Error())
	}

	// Mon-Sat: 10:00-13:00 morning, 17:00-20:00 evening.
	for day := 1; day <= 6; day++ {
		ranges := []struct {
			start, end int
			period     string
		}{
			{600, 780, "morning"},
			{1020, 1200, "evening"},
		}
		for _, rng := range ranges {
			_, err := pool.Exec(ctx, `
				INSERT INTO availability_ranges (template_id, weekday, start_minute, end_minute, period)
				VALUES ($1, $2, $3, $4, $5)
			`, templateID, day, rng.start, rng.end, rng.period)
			if err != nil {
				fatal(err.Error())
			}
		}
	}

	fmt.Println("seeded demo provider doc-demo-1 at est-demo-1 with patient pat-demo-1")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error: "+msg)
	os.Exit(1)
}
