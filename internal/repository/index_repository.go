// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finrag-go/internal/model"
)

// ErrManifestNotFound 表示该集合尚未在本地登记过索引。
var ErrManifestNotFound = errors.New("index manifest not found")

// IndexRepository 定义了本地索引元数据（manifest + 节点记录）的持久化操作。
type IndexRepository interface {
	GetManifest(ctx context.Context, collection string) (*model.IndexManifest, error)
	// SaveNodes 写入节点记录并刷新 manifest 的节点总数。
	SaveNodes(ctx context.Context, manifest *model.IndexManifest, nodes []model.Node) error
	ListNodes(ctx context.Context, collection string, limit int) ([]model.Node, error)
}

type indexRepository struct {
	db *gorm.DB
}

// NewIndexRepository 创建一个新的 IndexRepository 实例。
func NewIndexRepository(db *gorm.DB) IndexRepository {
	return &indexRepository{db: db}
}

func (r *indexRepository) GetManifest(ctx context.Context, collection string) (*model.IndexManifest, error) {
	var m model.IndexManifest
	err := r.db.WithContext(ctx).Where("collection = ?", collection).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrManifestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *indexRepository) SaveNodes(ctx context.Context, manifest *model.IndexManifest, nodes []model.Node) error {
	records := make([]*model.IndexNode, 0, len(nodes))
	for _, n := range nodes {
		md, err := json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata of %s: %w", n.ID, err)
		}
		records = append(records, &model.IndexNode{
			NodeID:     n.ID,
			Collection: manifest.Collection,
			DocumentID: n.DocumentID,
			Text:       n.Text,
			Metadata:   string(md),
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			// 相同输入重建索引时节点 ID 不变，覆盖旧记录
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(records, 100).Error; err != nil {
				return fmt.Errorf("save index nodes: %w", err)
			}
		}

		var count int64
		if err := tx.Model(&model.IndexNode{}).Where("collection = ?", manifest.Collection).Count(&count).Error; err != nil {
			return fmt.Errorf("count index nodes: %w", err)
		}
		manifest.NodeCount = int(count)

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}},
			DoUpdates: clause.AssignmentColumns([]string{"embed_model", "dimensions", "node_count", "updated_at"}),
		}).Create(manifest).Error
	})
}

func (r *indexRepository) ListNodes(ctx context.Context, collection string, limit int) ([]model.Node, error) {
	var records []model.IndexNode
	err := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at, node_id").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	nodes := make([]model.Node, 0, len(records))
	for _, rec := range records {
		md := map[string]string{}
		if rec.Metadata != "" {
			if err := json.Unmarshal([]byte(rec.Metadata), &md); err != nil {
				return nil, fmt.Errorf("unmarshal metadata of %s: %w", rec.NodeID, err)
			}
		}
		nodes = append(nodes, model.Node{ID: rec.NodeID, DocumentID: rec.DocumentID, Text: rec.Text, Metadata: md})
	}
	return nodes, nil
}
