package app

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/fixture-scheduler/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	maxTracedQueryLength = 512
	fallbackDBName       = "postgres"
)

var (
	queryWhitespaceRegex = regexp.MustCompile(`\s+`)
	quotedLiteralRegex   = regexp.MustCompile(`'(?:[^']|'')*'`)
)

// dbTarget is the resolved connection string plus the database name used to
// label spans and pool metrics.
type dbTarget struct {
	DSN  string
	Name string
}

func resolveDBTarget(raw string, disablePreparedBinaryResult bool) (dbTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return dbTarget{}, fmt.Errorf("DB_URL is required for the postgres status backend or the dispatch log")
	}

	target := dbTarget{DSN: raw, Name: fallbackDBName}
	parsed, err := url.Parse(raw)
	if err == nil && parsed.Scheme != "" {
		if name := strings.Trim(parsed.Path, "/ "); name != "" {
			target.Name = name
		}
		if disablePreparedBinaryResult {
			query := parsed.Query()
			if query.Get("disable_prepared_binary_result") == "" {
				query.Set("disable_prepared_binary_result", "yes")
				parsed.RawQuery = query.Encode()
			}
			target.DSN = parsed.String()
		}
		return target, nil
	}

	// key=value DSN
	for _, token := range strings.Fields(raw) {
		name, ok := strings.CutPrefix(token, "dbname=")
		if !ok {
			continue
		}
		if name = strings.Trim(name, `"'`); name != "" {
			target.Name = name
		}
	}
	if disablePreparedBinaryResult && !strings.Contains(raw, "disable_prepared_binary_result=") {
		target.DSN = raw + " disable_prepared_binary_result=yes"
	}
	return target, nil
}

// formatDBQueryForTrace collapses whitespace, blanks quoted literals and caps
// the length of statements attached to spans.
func formatDBQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := queryWhitespaceRegex.ReplaceAllString(query, " ")
	normalized = quotedLiteralRegex.ReplaceAllString(normalized, "'?'")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	return normalized[:maxTracedQueryLength] + "..."
}

func (a *App) openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	target, err := resolveDBTarget(cfg.DBURL, cfg.DBDisablePreparedBinary)
	if err != nil {
		return nil, err
	}

	db, err := otelsqlx.Open("postgres", target.DSN,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(target.Name),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres db=%s: %w", target.Name, err)
	}
	otelsql.ReportDBStatsMetrics(db.DB, otelsql.WithDBName(target.Name))

	a.onClose(db.Close)
	return db, nil
}
