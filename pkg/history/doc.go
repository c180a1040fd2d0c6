// Package history provides the SQLite-backed record of finished workspace
// operations. It uses WAL mode and embedded migrations, and feeds both the
// history subcommand and calibration capture with per-run duration and
// output-volume figures.
package history
