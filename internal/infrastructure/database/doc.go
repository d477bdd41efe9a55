// Package database opens the SQLite file that stores door transitions and
// brings its schema up to date.
//
// Migrations are forward-only .sql files named YYYYMMDD_HHMMSS_name.sql,
// embedded by the top-level migrations package:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Readings that do not change the door state are never stored here; they go
// to InfluxDB when that is enabled.
package database
