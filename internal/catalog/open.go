// Package catalog opens the rule store selected by configuration.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/liamcoop/prrules/internal/config"
	"github.com/liamcoop/prrules/rules"
)

// Open returns the configured RuleStore and a function releasing it.
// The csv source is read fully into memory; the postgres source keeps a
// connection pool open until close is called.
func Open(cfg *config.Config) (store rules.RuleStore, closeFn func() error, err error) {
	switch cfg.Rules.Source {
	case config.SourceCSV:
		catalog, err := rules.LoadCatalogFile(cfg.Rules.Path)
		if err != nil {
			return nil, nil, err
		}
		return rules.NewInMemoryRuleStore(catalog...), func() error { return nil }, nil

	case config.SourcePostgres:
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return rules.NewPostgresRuleStore(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown rules source %q", cfg.Rules.Source)
	}
}
