package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"finrag-go/internal/model"
	"finrag-go/pkg/log"
	"finrag-go/pkg/tasks"
)

// ErrNoDocuments 表示 PDF 中没有抽取到任何问答。
var ErrNoDocuments = errors.New("no Q/A documents extracted")

// ObjectDownloader 从对象存储下载文件。
type ObjectDownloader interface {
	Download(ctx context.Context, objectName, dest string) error
}

// JobStore 保存异步任务状态。
type JobStore interface {
	Save(ctx context.Context, job *model.IngestJob) error
}

// Processor 是 Kafka 异步入库任务的执行者：下载 → 抽取 → 入库。
type Processor struct {
	objects ObjectDownloader
	builder *Builder
	indexer *Indexer
	jobs    JobStore
	tempDir string
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(objects ObjectDownloader, builder *Builder, indexer *Indexer, jobs JobStore, tempDir string) *Processor {
	return &Processor{
		objects: objects,
		builder: builder,
		indexer: indexer,
		jobs:    jobs,
		tempDir: tempDir,
	}
}

// Process 是文件处理的主函数。
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) error {
	log.Infof("[Processor] 开始处理文件, TaskID: %s, FileName: %s", task.TaskID, task.FileName)
	p.saveJob(ctx, &model.IngestJob{TaskID: task.TaskID, FileName: task.FileName, Status: model.JobProcessing})

	count, err := p.process(ctx, task)
	if err != nil {
		log.Errorf("[Processor] 文件处理失败, TaskID: %s, Error: %v", task.TaskID, err)
		p.saveJob(ctx, &model.IngestJob{TaskID: task.TaskID, FileName: task.FileName, Status: model.JobFailed, Error: err.Error()})
		return err
	}

	p.saveJob(ctx, &model.IngestJob{TaskID: task.TaskID, FileName: task.FileName, Status: model.JobDone, DocumentCount: count})
	log.Infof("[Processor] 文件处理成功完成, TaskID: %s, 文档数: %d", task.TaskID, count)
	return nil
}

func (p *Processor) process(ctx context.Context, task tasks.IngestTask) (int, error) {
	// 1. 从 MinIO 下载文件
	if err := os.MkdirAll(p.tempDir, os.ModePerm); err != nil {
		return 0, fmt.Errorf("create temp root: %w", err)
	}
	dir, err := os.MkdirTemp(p.tempDir, "ingest-*")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, filepath.Base(task.FileName))
	log.Infof("[Processor] 步骤1: 从MinIO下载文件, Object: %s", task.ObjectName)
	if err := p.objects.Download(ctx, task.ObjectName, local); err != nil {
		return 0, err
	}

	// 2. 逐页抽取问答
	log.Info("[Processor] 步骤2: 抽取问答文档")
	docs, err := p.builder.Build(ctx, local)
	if err != nil {
		return 0, fmt.Errorf("extract documents: %w", err)
	}
	if len(docs) == 0 {
		return 0, ErrNoDocuments
	}

	// 3. 切分、向量化并写入向量库
	log.Info("[Processor] 步骤3: 构建向量索引")
	if _, err := p.indexer.CreateIndex(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (p *Processor) saveJob(ctx context.Context, job *model.IngestJob) {
	if err := p.jobs.Save(ctx, job); err != nil {
		log.Warnf("[Processor] 更新任务状态失败, TaskID: %s, Error: %v", job.TaskID, err)
	}
}
