package model

import "time"

// IndexManifest 记录一个已构建索引的本地元数据。
type IndexManifest struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Collection string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"collection"`
	EmbedModel string    `gorm:"type:varchar(128)" json:"embedModel"`
	Dimensions int       `gorm:"not null" json:"dimensions"`
	NodeCount  int       `gorm:"not null;default:0" json:"nodeCount"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (IndexManifest) TableName() string {
	return "index_manifests"
}

// IndexNode 是节点在本地元数据库中的记录（docstore）。
type IndexNode struct {
	NodeID     string    `gorm:"type:varchar(36);primaryKey;column:node_id"`
	Collection string    `gorm:"type:varchar(128);not null;index;column:collection"`
	DocumentID string    `gorm:"type:varchar(64);index;column:document_id"`
	Text       string    `gorm:"type:text;column:text"`
	Metadata   string    `gorm:"type:text;column:metadata"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (IndexNode) TableName() string {
	return "index_nodes"
}
