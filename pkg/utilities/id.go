package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewID generates a time-ordered int64 row ID. Snowflake IDs increase with
// insertion order, so "ORDER BY id" doubles as insertion ordering without
// dialect-specific autoincrement columns. The node ID comes from the
// SNOWFLAKE_NODE environment variable and defaults to 1.
func NewID() int64 {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if env := os.Getenv("SNOWFLAKE_NODE"); env != "" {
			if parsed, err := strconv.ParseInt(env, 10, 64); err == nil {
				nodeID = parsed
			}
		}
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			// node IDs outside [0,1023] are a config error; fall back to 0
			n, _ = snowflake.NewNode(0)
		}
		node = n
	})
	return node.Generate().Int64()
}

// NewRequestID generates a globally unique KSUID string for request tracing.
func NewRequestID() string {
	return ksuid.New().String()
}
