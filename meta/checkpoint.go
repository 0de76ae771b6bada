package meta

import (
	"context"
	"time"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/google/uuid"

	apierrors "github.com/cubefs/metatree/errors"
	"github.com/cubefs/metatree/metrics"
	"github.com/cubefs/metatree/mlog"
	"github.com/cubefs/metatree/util"
)

// Checkpoint writes the tree to a fresh snapshot and truncates the
// operation log. Concurrent callers share one run.
func (m *Manager) Checkpoint(ctx context.Context) error {
	_, err, _ := m.singleRun.Do("checkpoint", func() (interface{}, error) {
		return nil, m.checkpoint(ctx)
	})
	return err
}

func (m *Manager) checkpoint(ctx context.Context) (err error) {
	span := trace.SpanFromContextSafe(ctx)
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.CheckpointTotal.WithLabelValues(status).Inc()
		metrics.CheckpointDuration.Observe(time.Since(start).Seconds())
	}()

	// Mutations wait for the whole checkpoint, the published snapshot and
	// the truncated operation log describe the same tree.
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return apierrors.ErrManagerClosed
	}

	tmpName := tmpPrefix + uuid.New().String()
	f, err := m.dir.CreateFile(tmpName)
	if err != nil {
		return errors.Info(err, "create checkpoint file failed")
	}
	tw := &util.TimeWriter{W: m.limiter.Writer(ctx, f)}
	w := mlog.NewWriter(tw, f)

	if err = m.tree.SerializeTo(w, m.cfg.SortedSnapshot); err != nil {
		f.Close()
		m.dir.Remove(tmpName)
		return errors.Info(err, "serialize tree failed")
	}
	if err = w.Close(); err != nil {
		m.dir.Remove(tmpName)
		return errors.Info(err, "sync checkpoint file failed")
	}
	if err = m.dir.Rename(tmpName, snapshotName); err != nil {
		m.dir.Remove(tmpName)
		return errors.Info(err, "publish checkpoint failed")
	}

	if err = m.rotateOpLog(ctx); err != nil {
		return err
	}

	span.Infof("checkpoint done: nodes[%d] cost[%s] write cost[%s]",
		m.tree.NodeCount(), time.Since(start), tw.GetCost())
	return nil
}

func (m *Manager) rotateOpLog(ctx context.Context) error {
	span := trace.SpanFromContextSafe(ctx)

	// The snapshot already covers every record, a close error on the old
	// appender can not lose an acknowledged mutation.
	if err := m.appender.Close(); err != nil {
		span.Warnf("close old operation log failed: %s", err.Error())
	}
	f, err := m.dir.CreateFile(opLogName)
	if err != nil {
		return errors.Info(err, "truncate operation log failed")
	}
	m.appender = mlog.NewWriter(f, f)
	return nil
}
