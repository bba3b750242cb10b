// Package database provides SQLite storage for Paketbox Core.
//
// The box keeps very little on disk: wear counters for the flap drives
// and the delivery door lock, plus a short history of completed cycles.
// Box state itself is never persisted; it is re-read from the sensors on
// every start.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql, and run in version order.
package database
