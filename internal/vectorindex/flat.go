package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"hotel-insights-go/pkg/log"
	"hotel-insights-go/pkg/storage"
)

// SnapshotFile 是本地索引快照的文件名。
const SnapshotFile = "index.json"

const snapshotFormatVersion = 1

// FlatIndex 是暴力余弦相似度索引。
type FlatIndex struct {
	docs      []Document
	vectors   [][]float32
	norms     []float64
	dim       int
	createdAt time.Time
}

// NewFlatIndex 构建一个内存索引。
func NewFlatIndex(docs []Document, vectors [][]float32) (*FlatIndex, error) {
	dim, err := validateInput(docs, vectors)
	if err != nil {
		return nil, err
	}
	idx := &FlatIndex{
		docs:      append([]Document(nil), docs...),
		vectors:   make([][]float32, len(vectors)),
		norms:     make([]float64, len(vectors)),
		dim:       dim,
		createdAt: time.Now().UTC(),
	}
	for i, v := range vectors {
		idx.vectors[i] = append([]float32(nil), v...)
		idx.norms[i] = norm(v)
	}
	return idx, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Search 返回与 vector 余弦相似度最高的 k 个文档，得分相同时保持构建顺序。
func (f *FlatIndex) Search(_ context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != f.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	qn := norm(vector)
	hits := make([]Hit, len(f.docs))
	for i, v := range f.vectors {
		var dot float64
		for j := range v {
			dot += float64(v[j]) * float64(vector[j])
		}
		score := 0.0
		if qn > 0 && f.norms[i] > 0 {
			score = dot / (qn * f.norms[i])
		}
		hits[i] = Hit{Document: f.docs[i], Score: score}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (f *FlatIndex) Documents() []Document { return f.docs }

func (f *FlatIndex) Len() int { return len(f.docs) }

func (f *FlatIndex) Dimension() int { return f.dim }

type snapshot struct {
	Version   int             `json:"version"`
	Dimension int             `json:"dimension"`
	CreatedAt time.Time       `json:"created_at"`
	Documents []snapshotEntry `json:"documents"`
}

type snapshotEntry struct {
	Document
	Vector []float32 `json:"vector"`
}

// Save 把索引写入 dir/index.json。先写临时文件再重命名，读者不会看到半个文件。
func (f *FlatIndex) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create index dir: %w", err)
	}

	snap := snapshot{
		Version:   snapshotFormatVersion,
		Dimension: f.dim,
		CreatedAt: f.createdAt,
		Documents: make([]snapshotEntry, len(f.docs)),
	}
	for i := range f.docs {
		snap.Documents[i] = snapshotEntry{Document: f.docs[i], Vector: f.vectors[i]}
	}

	tmp, err := os.CreateTemp(dir, SnapshotFile+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp snapshot: %w", err)
	}

	path := filepath.Join(dir, SnapshotFile)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replace snapshot: %w", err)
	}
	return path, nil
}

// LoadFlat 从 dir/index.json 加载索引。文件不存在时返回 ErrNoSnapshot。
func LoadFlat(dir string) (*FlatIndex, error) {
	data, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotFormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	docs := make([]Document, len(snap.Documents))
	vectors := make([][]float32, len(snap.Documents))
	for i, e := range snap.Documents {
		docs[i] = e.Document
		vectors[i] = e.Vector
	}
	idx, err := NewFlatIndex(docs, vectors)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	if idx.dim != snap.Dimension {
		return nil, fmt.Errorf("snapshot dimension %d does not match vectors %d", snap.Dimension, idx.dim)
	}
	idx.createdAt = snap.CreatedAt
	return idx, nil
}

// LocalBuilder 构建 FlatIndex 并持久化到本地目录，可选镜像到对象存储。
type LocalBuilder struct {
	dir    string
	mirror *storage.Mirror
}

// NewLocalBuilder 创建一个 LocalBuilder。dir 为空时不持久化；mirror 可为 nil。
func NewLocalBuilder(dir string, mirror *storage.Mirror) *LocalBuilder {
	return &LocalBuilder{dir: dir, mirror: mirror}
}

func (b *LocalBuilder) Build(ctx context.Context, docs []Document, vectors [][]float32) (Index, error) {
	idx, err := NewFlatIndex(docs, vectors)
	if err != nil {
		return nil, err
	}
	if b.dir == "" {
		return idx, nil
	}

	// 持久化失败不影响本次刷新，下次启动时重新构建即可
	path, err := idx.Save(b.dir)
	if err != nil {
		log.Warnf("[VectorIndex] 保存索引快照失败: %v", err)
		return idx, nil
	}
	log.Infof("[VectorIndex] 索引快照已保存: %s (%d 条)", path, idx.Len())

	if b.mirror != nil {
		if err := b.mirror.Upload(ctx, path); err != nil {
			log.Warnf("[VectorIndex] 上传索引快照失败: %v", err)
		}
	}
	return idx, nil
}

func (b *LocalBuilder) Restore(ctx context.Context) (Index, error) {
	if b.dir == "" {
		return nil, ErrNoSnapshot
	}

	path := filepath.Join(b.dir, SnapshotFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && b.mirror != nil {
		if err := os.MkdirAll(b.dir, 0o755); err != nil {
			return nil, err
		}
		switch err := b.mirror.Download(ctx, path); {
		case errors.Is(err, storage.ErrObjectNotFound):
			return nil, ErrNoSnapshot
		case err != nil:
			log.Warnf("[VectorIndex] 下载索引快照失败: %v", err)
			return nil, ErrNoSnapshot
		default:
			log.Infof("[VectorIndex] 已从对象存储恢复索引快照")
		}
	}

	idx, err := LoadFlat(b.dir)
	if err != nil {
		return nil, err
	}
	return idx, nil
}
