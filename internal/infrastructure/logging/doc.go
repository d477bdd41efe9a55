// Package logging builds the slog logger used across doorsense.
//
// Output goes to stdout, stderr or a lumberjack rotated file, as JSON or
// text, filtered by level:
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "file"
//	  file:
//	    path: "./logs/doorsense.log"
//	    max_size: 10     # megabytes
//	    max_backups: 5
//	    max_age: 30      # days
//
// Each reading logs its roll at info level, so the default level shows one
// line per /status request.
package logging
