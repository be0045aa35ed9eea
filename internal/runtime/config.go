// Package runtime wires the store, auth, pub/sub, TTL, snapshot, command
// and server packages into one running process, the Go analogue of
// tinydb_server.c's main() and the global config.h constants it reads at
// startup.
package runtime

import "github.com/dreamware/tinydb/internal/tlog"

// Config collects every tunable config.h exposed, so cmd/tinydb-server can
// surface them as flags without this package knowing about cobra.
type Config struct {
	Host string
	Port int

	// CommandBufferSize/CommandBufferMax mirror COMMAND_BUFFER_SIZE and
	// the hard ceiling a connection's request line may grow to before the
	// connection is dropped (spec Open Question 4).
	CommandBufferSize int
	CommandBufferMax  int

	// ConnQueueSize mirrors listen(2)'s backlog argument. Go's net
	// package has no portable way to raise it above the OS default once
	// a Listener exists, so this is carried for documentation/tooling
	// parity rather than applied directly; see DESIGN.md.
	ConnQueueSize int

	NumShards           int
	NumInitialDatabases int

	// MaxStringLength bounds string values accepted by set/append/rpush/
	// lpush, config.h's MAX_STRING_LENGTH resource-exhaustion guard.
	MaxStringLength int

	// MaxFreedNodes mirrors listval.MaxFreedNodes (the recycled-node cache
	// cap) and ResizeWorkIncrement mirrors dbhash.ResizeWorkIncrement (the
	// incremental-resize step). They are carried here for documentation
	// parity; listval.New and dbhash.New do not take them as parameters
	// (see DESIGN.md).
	MaxFreedNodes        int
	ResizeWorkIncrement  int

	SnapshotPath        string
	ExitSnapshotPath    string
	SnapshotIntervalSec int

	TTLSweepIntervalSec int

	WorkerPoolSize  int
	WorkerQueueDepth int

	MetricsAddr string

	LogLevel   tlog.Level
	LogJSON    bool
}

// Defaults returns config.h's stock values.
func Defaults() Config {
	return Config{
		Host:                "0.0.0.0",
		Port:                8079,
		CommandBufferSize:   1 << 20,
		CommandBufferMax:    16 << 20,
		ConnQueueSize:       128,
		NumShards:           16,
		NumInitialDatabases: 1,
		MaxStringLength:     1_000_000,
		MaxFreedNodes:       1024,
		ResizeWorkIncrement: 64,
		SnapshotPath:        "snapshot.bin",
		ExitSnapshotPath:    "on_exit_snapshot.bin",
		SnapshotIntervalSec: 0,
		TTLSweepIntervalSec: 1,
		WorkerPoolSize:      10,
		WorkerQueueDepth:    256,
		MetricsAddr:         ":9090",
		LogLevel:            tlog.InfoLevel,
		LogJSON:             false,
	}
}
