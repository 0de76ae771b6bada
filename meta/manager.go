package meta

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/cubefs/cubefs/blobstore/util/taskpool"
	"github.com/cubefs/cubefs/util/btree"
	"golang.org/x/sync/singleflight"

	"github.com/cubefs/metatree/common/stringpool"
	apierrors "github.com/cubefs/metatree/errors"
	"github.com/cubefs/metatree/meta/mnode"
	"github.com/cubefs/metatree/meta/mtree"
	"github.com/cubefs/metatree/metrics"
	"github.com/cubefs/metatree/mlog"
	"github.com/cubefs/metatree/proto"
	"github.com/cubefs/metatree/util/limiter"
)

const (
	snapshotName = "meta.snapshot"
	opLogName    = "meta.log"
	tmpPrefix    = snapshotName + ".tmp-"

	defaultDir                 = "./meta"
	defaultCheckpointIntervalS = 600
	defaultMetricsIntervalS    = 60
	defaultTaskPoolSize        = 8
	defaultBTreeDegree         = 32
)

type Config struct {
	Dir string `json:"dir"`
	// SyncEveryRecord fsyncs the operation log on every mutation. Off by
	// default, a crash then loses at most the records since the last sync.
	SyncEveryRecord     bool                `json:"sync_every_record"`
	SortedSnapshot      bool                `json:"sorted_snapshot"`
	CheckpointIntervalS int                 `json:"checkpoint_interval_s"`
	MetricsIntervalS    int                 `json:"metrics_interval_s"`
	Limit               limiter.LimitConfig `json:"limit"`
}

func initConfig(cfg *Config) {
	if cfg.Dir == "" {
		cfg.Dir = defaultDir
	}
	if cfg.CheckpointIntervalS <= 0 {
		cfg.CheckpointIntervalS = defaultCheckpointIntervalS
	}
	if cfg.MetricsIntervalS <= 0 {
		cfg.MetricsIntervalS = defaultMetricsIntervalS
	}
}

// sgItem keeps the storage group registry ordered by path.
type sgItem struct {
	path string
	ttl  int64
}

func (s *sgItem) Less(than btree.Item) bool {
	return s.path < than.(*sgItem).path
}

func (s *sgItem) Copy() btree.Item {
	return &(*s)
}

// Manager owns the metadata tree, its operation log and the snapshot
// lifecycle. Mutations hold the write lock and append one log record; tree
// lookups run lock free, only the ordered storage group registry is guarded.
type Manager struct {
	lock   sync.RWMutex
	tree   *mtree.Tree
	groups *btree.BTree
	closed bool

	dir       mlog.Dir
	appender  *mlog.Writer
	limiter   limiter.Limiter
	singleRun *singleflight.Group
	taskPool  taskpool.TaskPool
	done      chan struct{}
	loopWg    sync.WaitGroup
	cfg       *Config
}

func NewManager(ctx context.Context, cfg *Config) (*Manager, error) {
	span := trace.SpanFromContextSafe(ctx)
	initConfig(cfg)

	dir, err := mlog.OpenDir(cfg.Dir)
	if err != nil {
		return nil, errors.Info(err, "open meta dir failed")
	}

	m := &Manager{
		groups:    btree.New(defaultBTreeDegree),
		dir:       dir,
		limiter:   limiter.NewLimiter(cfg.Limit),
		singleRun: &singleflight.Group{},
		done:      make(chan struct{}),
		cfg:       cfg,
	}

	if err := m.recover(ctx); err != nil {
		return nil, err
	}

	appendFile, err := dir.AppendFile(opLogName)
	if err != nil {
		return nil, errors.Info(err, "open operation log failed")
	}
	m.appender = mlog.NewWriter(appendFile, appendFile)
	m.taskPool = taskpool.New(defaultTaskPoolSize, defaultTaskPoolSize)

	m.refreshMetrics()
	span.Infof("meta manager ready: dir[%s] nodes[%d] series[%d] storage groups[%d]",
		cfg.Dir, m.tree.NodeCount(), m.tree.LeafCount(), m.groups.Len())

	m.loopWg.Add(1)
	go m.loop(ctx)
	return m, nil
}

func (m *Manager) SetStorageGroup(ctx context.Context, path string, ttl int64) error {
	span := trace.SpanFromContextSafe(ctx)

	p, err := parseRecordPath(path)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = proto.TTLInfinite
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return apierrors.ErrManagerClosed
	}
	if err := m.tree.SetStorageGroup(p, ttl); err != nil {
		return err
	}
	m.groups.ReplaceOrInsert(&sgItem{path: path, ttl: ttl})
	if err := m.appendRecord(proto.OpSetStorageGroup, path, strconv.FormatInt(ttl, 10)); err != nil {
		return errors.Info(err, "append operation log failed")
	}

	span.Infof("set storage group[%s] ttl[%d]", path, ttl)
	return nil
}

func (m *Manager) DeleteStorageGroup(ctx context.Context, path string) error {
	span := trace.SpanFromContextSafe(ctx)

	p, err := parseRecordPath(path)
	if err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return apierrors.ErrManagerClosed
	}
	if err := m.tree.DeleteStorageGroup(p); err != nil {
		return err
	}
	m.groups.Delete(&sgItem{path: path})
	if err := m.appendRecord(proto.OpDeleteStorageGroup, path); err != nil {
		return errors.Info(err, "append operation log failed")
	}

	span.Infof("delete storage group[%s]", path)
	return nil
}

func (m *Manager) CreateTimeseries(ctx context.Context, path string, schema proto.MeasurementSchema, alias string) error {
	span := trace.SpanFromContextSafe(ctx)

	p, err := parseRecordPath(path)
	if err != nil {
		return err
	}
	if !schema.Valid() {
		return apierrors.ErrIllegalSchema
	}
	if alias != "" && (strings.Contains(alias, ",") || strings.Contains(alias, proto.PathSeparator)) {
		return apierrors.ErrIllegalPath
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return apierrors.ErrManagerClosed
	}
	if err := m.tree.CreateTimeseries(p, schema, alias); err != nil {
		return err
	}
	err = m.appendRecord(proto.OpCreateTimeseries, path, alias,
		strconv.Itoa(int(schema.DataType)),
		strconv.Itoa(int(schema.Encoding)),
		strconv.Itoa(int(schema.Compression)))
	if err != nil {
		return errors.Info(err, "append operation log failed")
	}

	span.Infof("create timeseries[%s] alias[%s]", path, alias)
	return nil
}

func (m *Manager) DeleteTimeseries(ctx context.Context, path string) error {
	span := trace.SpanFromContextSafe(ctx)

	p, err := parseRecordPath(path)
	if err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return apierrors.ErrManagerClosed
	}
	if err := m.tree.DeleteTimeseries(p); err != nil {
		return err
	}
	if err := m.appendRecord(proto.OpDeleteTimeseries, path); err != nil {
		return errors.Info(err, "append operation log failed")
	}

	span.Infof("delete timeseries[%s]", path)
	return nil
}

func (m *Manager) GetNode(ctx context.Context, path string) (*NodeInfo, error) {
	p, err := proto.ParsePath(path)
	if err != nil {
		return nil, err
	}
	node, err := m.tree.GetNode(p)
	if err != nil {
		return nil, err
	}
	return newNodeInfo(node), nil
}

func (m *Manager) PathExists(ctx context.Context, path string) (bool, error) {
	p, err := proto.ParsePath(path)
	if err != nil {
		return false, err
	}
	return m.tree.PathExists(p), nil
}

// ListTimeseries returns every measurement matching pattern, ordered by
// path. The walk is bounded by the query limiter.
func (m *Manager) ListTimeseries(ctx context.Context, pattern string) ([]*TimeseriesInfo, error) {
	p, err := proto.ParsePath(pattern)
	if err != nil {
		return nil, err
	}
	if err := m.limiter.AcquireQuery(); err != nil {
		return nil, err
	}
	defer m.limiter.ReleaseQuery()

	measurements, err := m.tree.CollectMeasurements(p)
	if err != nil {
		return nil, err
	}
	infos := make([]*TimeseriesInfo, 0, len(measurements))
	for _, leaf := range measurements {
		info := &TimeseriesInfo{
			Path:        leaf.FullPath(),
			Alias:       leaf.Alias(),
			DataType:    leaf.Schema().DataType.String(),
			Encoding:    leaf.Schema().Encoding.String(),
			Compression: leaf.Schema().Compression.String(),
			Offset:      leaf.Offset(),
		}
		if sg, err := m.tree.GetStorageGroupPath(leaf.PartialPath()); err == nil {
			info.StorageGroup = sg
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Path < infos[j].Path
	})
	return infos, nil
}

// ListStorageGroups returns every storage group ordered by path.
func (m *Manager) ListStorageGroups(ctx context.Context) []*StorageGroupInfo {
	m.lock.RLock()
	items := make([]*sgItem, 0, m.groups.Len())
	m.groups.Ascend(func(i btree.Item) bool {
		items = append(items, i.(*sgItem))
		return true
	})
	m.lock.RUnlock()

	infos := make([]*StorageGroupInfo, 0, len(items))
	for _, item := range items {
		info := &StorageGroupInfo{Path: item.path, TTL: item.ttl}
		if p, err := proto.ParsePath(item.path); err == nil {
			if node, err := m.tree.GetNode(p); err == nil {
				info.SeriesCount = node.LeafCount()
			}
		}
		infos = append(infos, info)
	}
	return infos
}

func (m *Manager) StorageGroupOf(ctx context.Context, path string) (string, error) {
	p, err := proto.ParsePath(path)
	if err != nil {
		return "", err
	}
	return m.tree.GetStorageGroupPath(p)
}

// TotalSeries counts the measurement leaves of the whole tree. Concurrent
// callers share one walk.
func (m *Manager) TotalSeries(ctx context.Context) int {
	v, _, _ := m.singleRun.Do("total-series", func() (interface{}, error) {
		return m.tree.LeafCount(), nil
	})
	return v.(int)
}

func (m *Manager) Stats(ctx context.Context) *Stats {
	v, _, _ := m.singleRun.Do("stats", func() (interface{}, error) {
		m.lock.RLock()
		groups := m.groups.Len()
		m.lock.RUnlock()
		return &Stats{
			Series:        m.tree.LeafCount(),
			StorageGroups: groups,
			Nodes:         m.tree.NodeCount(),
			InternedPaths: stringpool.Default.Len(),
		}, nil
	})
	return v.(*Stats)
}

func (m *Manager) Limiter() limiter.Limiter {
	return m.limiter
}

func (m *Manager) Close() error {
	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return apierrors.ErrManagerClosed
	}
	m.closed = true
	err := m.appender.Close()
	m.lock.Unlock()

	// The loop must stop submitting before the pool can close.
	close(m.done)
	m.loopWg.Wait()
	m.taskPool.Close()
	return err
}

// appendRecord writes one record and makes it visible to recovery. Callers
// hold the write lock.
func (m *Manager) appendRecord(fields ...string) error {
	if err := m.appender.WriteRecord(fields...); err != nil {
		return err
	}
	if err := m.appender.Flush(); err != nil {
		return err
	}
	if m.cfg.SyncEveryRecord {
		if err := m.appender.Sync(); err != nil {
			return err
		}
	}
	metrics.OpLogRecords.Inc()
	return nil
}

func (m *Manager) loop(ctx context.Context) {
	defer m.loopWg.Done()

	checkpointTicker := time.NewTicker(time.Duration(m.cfg.CheckpointIntervalS) * time.Second)
	metricsTicker := time.NewTicker(time.Duration(m.cfg.MetricsIntervalS) * time.Second)

	defer func() {
		checkpointTicker.Stop()
		metricsTicker.Stop()
	}()

	for {
		select {
		case <-checkpointTicker.C:
			m.taskPool.Run(func() {
				span, ctx := trace.StartSpanFromContext(ctx, "")
				if err := m.Checkpoint(ctx); err != nil && err != apierrors.ErrManagerClosed {
					span.Errorf("periodic checkpoint failed: %s", errors.Detail(err))
				}
			})
		case <-metricsTicker.C:
			m.taskPool.TryRun(func() {
				m.refreshMetrics()
			})
		case <-m.done:
			return
		}
	}
}

func (m *Manager) refreshMetrics() {
	metrics.SeriesTotal.Set(float64(m.tree.LeafCount()))
	metrics.NodeTotal.Set(float64(m.tree.NodeCount()))
	metrics.InternedPathsTotal.Set(float64(stringpool.Default.Len()))

	m.lock.RLock()
	metrics.StorageGroupTotal.Set(float64(m.groups.Len()))
	m.lock.RUnlock()
}

func newNodeInfo(node mnode.Node) *NodeInfo {
	info := &NodeInfo{
		Path:       node.FullPath(),
		Name:       node.Name(),
		Type:       node.Type().String(),
		ChildCount: node.ChildCount(),
		LeafCount:  node.LeafCount(),
	}
	switch n := node.(type) {
	case *mnode.StorageGroup:
		info.TTL = n.TTL()
	case *mnode.Measurement:
		info.Alias = n.Alias()
		info.DataType = n.Schema().DataType.String()
		info.Encoding = n.Schema().Encoding.String()
		info.Compression = n.Schema().Compression.String()
	}
	return info
}

// parseRecordPath validates a path that ends up inside a durable record,
// where a comma would tear the line format.
func parseRecordPath(path string) (proto.PartialPath, error) {
	p, err := proto.ParsePath(path)
	if err != nil {
		return proto.PartialPath{}, err
	}
	if strings.Contains(path, ",") {
		return proto.PartialPath{}, apierrors.ErrIllegalPath
	}
	return p, nil
}
