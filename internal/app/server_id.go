package app

import (
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// GenerateServerID 生成服务实例ID，优先使用环境变量 SERVER_ID
func GenerateServerID() string {
	if serverID := os.Getenv("SERVER_ID"); serverID != "" {
		return serverID
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("swap-server-%s-%s", hostname, shortUUID)
}

// NewIDNode 创建换电记录的雪花 ID 节点，多实例部署时 nodeID 必须互不相同
func NewIDNode(nodeID int64) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return node, nil
}
