// Command seedcsv bulk-loads exams, topics, and question banks from the CSV
// files in a data directory. Safe to re-run: existing exams and topics are
// matched by title instead of duplicated.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/examprep-pro/examprep/internal/config"
	"github.com/examprep-pro/examprep/internal/db"
	"github.com/examprep-pro/examprep/internal/exam"
	"github.com/examprep-pro/examprep/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	dir := flag.String("dir", cfg.DataDir, "directory holding exams.csv, topics.csv, questions_*.csv")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	loader := seed.NewLoader(exam.NewSQLStore(dbh, cfg.DBDriver))
	sum, err := loader.LoadDir(ctx, *dir)
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Printf("seeded %d exams, %d topics, %d questions from %s", sum.Exams, sum.Topics, sum.Questions, *dir)
}
