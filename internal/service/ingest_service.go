package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"finrag-go/internal/model"
	"finrag-go/internal/pipeline"
	"finrag-go/internal/repository"
	"finrag-go/pkg/log"
	"finrag-go/pkg/tasks"
)

var (
	// ErrExtractFailed 表示 PDF 中没有抽取到问答。
	ErrExtractFailed = errors.New("no Q/A extracted from pdf")
	// ErrIndexFailed 表示入库失败。
	ErrIndexFailed = errors.New("build vector index failed")
	// ErrInvalidCSV 表示 CSV 缺少必需列或没有可用的行。
	ErrInvalidCSV = errors.New("invalid qa csv")
	// ErrAsyncDisabled 表示未启用 Kafka 异步入库。
	ErrAsyncDisabled = errors.New("async ingestion is disabled")
)

// ObjectUploader 把上传的文件写入对象存储。
type ObjectUploader interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
}

// TaskProducer 投递异步入库任务。
type TaskProducer interface {
	ProduceIngestTask(ctx context.Context, task tasks.IngestTask) error
}

// IngestService 定义了文档入库操作。
type IngestService interface {
	// UploadPDF 同步抽取并入库，返回文档数。
	UploadPDF(ctx context.Context, fileName string, r io.Reader) (int, error)
	// UploadCSV 把问答 CSV 每行作为一个节点入库，返回节点数。
	UploadCSV(ctx context.Context, fileName string, r io.Reader) (int, error)
	SubmitPDF(ctx context.Context, fileName string, r io.Reader, size int64) (string, error)
	JobStatus(ctx context.Context, taskID string) (*model.IngestJob, error)
}

// AsyncDeps 是异步入库所需的依赖，未启用时为零值。
type AsyncDeps struct {
	Objects  ObjectUploader
	Producer TaskProducer
	Jobs     repository.JobRepository
}

func (d AsyncDeps) enabled() bool {
	return d.Objects != nil && d.Producer != nil && d.Jobs != nil
}

type ingestService struct {
	builder   *pipeline.Builder
	indexer   *pipeline.Indexer
	uploadDir string
	async     AsyncDeps
}

// NewIngestService 创建一个新的 IngestService 实例。
func NewIngestService(builder *pipeline.Builder, indexer *pipeline.Indexer, uploadDir string, async AsyncDeps) IngestService {
	return &ingestService{builder: builder, indexer: indexer, uploadDir: uploadDir, async: async}
}

func (s *ingestService) UploadPDF(ctx context.Context, fileName string, r io.Reader) (int, error) {
	path, err := s.save(fileName, r)
	if err != nil {
		return 0, err
	}
	log.Infof("[IngestService] 文件已保存: %s", path)

	docs, err := s.builder.Build(ctx, path)
	if err != nil || len(docs) == 0 {
		if err != nil {
			log.Errorf("[IngestService] 抽取失败: %v", err)
		}
		return 0, ErrExtractFailed
	}
	if _, err := s.indexer.CreateIndex(ctx, docs); err != nil {
		log.Errorf("[IngestService] 入库失败: %v", err)
		return 0, fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	return len(docs), nil
}

func (s *ingestService) UploadCSV(ctx context.Context, fileName string, r io.Reader) (int, error) {
	nodes, err := pipeline.NodesFromCSV(r, filepath.Base(fileName))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	if len(nodes) == 0 {
		return 0, fmt.Errorf("%w: no rows with an answer", ErrInvalidCSV)
	}
	if _, err := s.indexer.IndexNodes(ctx, nodes); err != nil {
		log.Errorf("[IngestService] CSV 入库失败: %v", err)
		return 0, fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	return len(nodes), nil
}

// SubmitPDF 上传到 MinIO、记录 queued 状态并投递 Kafka 任务，返回 taskId。
func (s *ingestService) SubmitPDF(ctx context.Context, fileName string, r io.Reader, size int64) (string, error) {
	if !s.async.enabled() {
		return "", ErrAsyncDisabled
	}
	taskID := uuid.NewString()
	name := filepath.Base(fileName)
	objectName := fmt.Sprintf("uploads/%s/%s", taskID, name)

	if err := s.async.Objects.Upload(ctx, objectName, r, size, "application/pdf"); err != nil {
		return "", err
	}
	if err := s.async.Jobs.Save(ctx, &model.IngestJob{TaskID: taskID, FileName: name, Status: model.JobQueued}); err != nil {
		return "", fmt.Errorf("save job: %w", err)
	}
	task := tasks.IngestTask{TaskID: taskID, ObjectName: objectName, FileName: name}
	if err := s.async.Producer.ProduceIngestTask(ctx, task); err != nil {
		log.Errorf("[IngestService] 投递 Kafka 任务失败: %v", err)
		_ = s.async.Jobs.Save(ctx, &model.IngestJob{TaskID: taskID, FileName: name, Status: model.JobFailed, Error: err.Error()})
		return "", fmt.Errorf("produce task: %w", err)
	}
	log.Infof("[IngestService] 已提交异步任务, TaskID: %s, Object: %s", taskID, objectName)
	return taskID, nil
}

func (s *ingestService) JobStatus(ctx context.Context, taskID string) (*model.IngestJob, error) {
	if !s.async.enabled() {
		return nil, ErrAsyncDisabled
	}
	return s.async.Jobs.Get(ctx, taskID)
}

func (s *ingestService) save(fileName string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, filepath.Base(fileName))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}
