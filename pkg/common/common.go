package common

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const NA = "N/A"

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

func idNode() *snowflake.Node {
	nodeOnce.Do(func() {
		var err error
		node, err = snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
	})
	return node
}

// SnowflakeID returns a time ordered snowflake id in decimal text.
func SnowflakeID() string {
	return idNode().Generate().String()
}

func UUID() string {
	return uuid.New().String()
}

// IsEmptyOrNA reports blank or "N/A" values.
func IsEmptyOrNA(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, NA)
}

// IfEmptyStr returns def when src is blank.
func IfEmptyStr(src string, def string) string {
	if strings.TrimSpace(src) == "" {
		return def
	}
	return src
}
