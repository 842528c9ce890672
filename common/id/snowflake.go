package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets up the snowflake node for this process. Each running instance
// (server, worker) must be given a distinct node ID so generated IDs never
// collide across binaries.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			err = fmt.Errorf("create snowflake node %d: %w", nodeID, err)
		}
	})
	return err
}

// New returns a time-ordered int64 ID, unique across instances.
func New() int64 {
	return node.Generate().Int64()
}
