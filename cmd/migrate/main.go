package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tabletennis/internal/config"
	"tabletennis/internal/db"
	"tabletennis/internal/logging"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const downMarker = "-- +migrate Down"

func main() {
	dir := flag.String("dir", "migrations", "directory holding *.sql migrations")
	flag.Parse()

	logCfg, err := config.LoadLog()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load log config")
	}
	logging.Init(logCfg)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	if _, err := database.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema_migrations")
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read migrations")
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			log.Fatal().Err(err).Msg("failed to read migration state")
		}
		if exists {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("failed to read migration")
		}
		err = db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
			for _, stmt := range upStatements(string(content)) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename)
			return err
		})
		if err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("failed to apply migration")
		}
		applied++
		log.Info().Str("file", filename).Msg("applied migration")
	}
	log.Info().Int("applied", applied).Int("total", len(files)).Msg("migrations complete")
}

// upStatements returns the statements above the Down marker, one per
// semicolon-terminated line group. Comment lines are dropped.
func upStatements(sqlText string) []string {
	up, _, _ := strings.Cut(sqlText, downMarker)
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(up))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.HasSuffix(strings.TrimSpace(line), ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
