package meta

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/cubefs/cubefs/blobstore/util/errors"

	apierrors "github.com/cubefs/metatree/errors"
	"github.com/cubefs/metatree/meta/mtree"
	"github.com/cubefs/metatree/mlog"
	"github.com/cubefs/metatree/proto"
	"github.com/cubefs/metatree/util"
)

// recover rebuilds the in memory tree from the last snapshot plus the
// operation log, then rebuilds the storage group registry from the tree.
func (m *Manager) recover(ctx context.Context) error {
	span := trace.SpanFromContextSafe(ctx)

	names, err := m.dir.List()
	if err != nil {
		return errors.Info(err, "list meta dir failed")
	}
	for _, name := range names {
		if !strings.HasPrefix(name, tmpPrefix) {
			continue
		}
		span.Warnf("remove stale checkpoint file[%s]", name)
		if err := m.dir.Remove(name); err != nil {
			return errors.Info(err, "remove stale checkpoint file failed")
		}
	}

	if err := m.loadSnapshot(ctx); err != nil {
		return err
	}
	if err := m.replayOpLog(ctx); err != nil {
		return err
	}

	for _, sg := range m.tree.CollectStorageGroups() {
		m.groups.ReplaceOrInsert(&sgItem{path: sg.FullPath(), ttl: sg.TTL()})
	}
	return nil
}

func (m *Manager) loadSnapshot(ctx context.Context) error {
	span := trace.SpanFromContextSafe(ctx)

	exists, err := m.dir.Exists(snapshotName)
	if err != nil {
		return errors.Info(err, "stat snapshot failed")
	}
	if !exists {
		m.tree = mtree.NewTree()
		return nil
	}

	f, err := m.dir.OpenFile(snapshotName)
	if err != nil {
		return errors.Info(err, "open snapshot failed")
	}
	tr := &util.TimeReader{R: m.limiter.Reader(ctx, f)}
	r := mlog.NewReader(tr, nil)

	tree, err := mtree.Deserialize(r)
	if err != nil {
		f.Close()
		return errors.Info(err, "load snapshot failed")
	}
	if err := f.Close(); err != nil {
		return errors.Info(err, "close snapshot failed")
	}
	m.tree = tree

	span.Infof("load snapshot done: nodes[%d] read cost[%s]", tree.NodeCount(), tr.GetCost())
	return nil
}

func (m *Manager) replayOpLog(ctx context.Context) error {
	span := trace.SpanFromContextSafe(ctx)

	exists, err := m.dir.Exists(opLogName)
	if err != nil {
		return errors.Info(err, "stat operation log failed")
	}
	if !exists {
		return nil
	}

	f, err := m.dir.OpenFile(opLogName)
	if err != nil {
		return errors.Info(err, "open operation log failed")
	}
	defer f.Close()
	r := mlog.NewReader(m.limiter.Reader(ctx, f), nil)

	replayed := 0
	cleanSize := int64(0)
	torn := false
	for {
		line, err := r.ReadLine()
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			// The tail record never hit the disk whole, the mutation it
			// carries was not acknowledged.
			span.Warnf("operation log ends with a torn record, dropping it")
			torn = true
			break
		}
		if err != nil {
			return errors.Info(err, "read operation log failed")
		}
		if err := m.applyRecord(ctx, strings.Split(line, ",")); err != nil {
			return err
		}
		cleanSize += int64(len(line)) + 1
		replayed++
	}
	if torn {
		// Cut the log back to the last whole record so new appends do not
		// splice onto the torn bytes.
		if err := m.dir.Truncate(opLogName, cleanSize); err != nil {
			return errors.Info(err, "truncate operation log failed")
		}
	}

	span.Infof("replay operation log done: records[%d]", replayed)
	return nil
}

func (m *Manager) applyRecord(ctx context.Context, fields []string) error {
	span := trace.SpanFromContextSafe(ctx)

	if len(fields) == 0 {
		return apierrors.ErrCorruptedOpLog
	}
	var err error
	switch fields[0] {
	case proto.OpSetStorageGroup:
		err = m.applySetStorageGroup(fields)
	case proto.OpDeleteStorageGroup:
		err = m.applyDeleteStorageGroup(fields)
	case proto.OpCreateTimeseries:
		err = m.applyCreateTimeseries(fields)
	case proto.OpDeleteTimeseries:
		err = m.applyDeleteTimeseries(fields)
	default:
		return apierrors.ErrCorruptedOpLog
	}
	if err != nil {
		// Records already covered by the snapshot replay as no-ops.
		if isBenignReplayError(err) {
			span.Warnf("skip replayed record %v: %s", fields, err.Error())
			return nil
		}
		return err
	}
	return nil
}

func (m *Manager) applySetStorageGroup(fields []string) error {
	if len(fields) != 3 {
		return apierrors.ErrCorruptedOpLog
	}
	p, err := proto.ParsePath(fields[1])
	if err != nil {
		return apierrors.ErrCorruptedOpLog
	}
	ttl, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return apierrors.ErrCorruptedOpLog
	}
	return m.tree.SetStorageGroup(p, ttl)
}

func (m *Manager) applyDeleteStorageGroup(fields []string) error {
	if len(fields) != 2 {
		return apierrors.ErrCorruptedOpLog
	}
	p, err := proto.ParsePath(fields[1])
	if err != nil {
		return apierrors.ErrCorruptedOpLog
	}
	return m.tree.DeleteStorageGroup(p)
}

func (m *Manager) applyCreateTimeseries(fields []string) error {
	if len(fields) != 6 {
		return apierrors.ErrCorruptedOpLog
	}
	p, err := proto.ParsePath(fields[1])
	if err != nil {
		return apierrors.ErrCorruptedOpLog
	}
	dataType, err1 := strconv.ParseUint(fields[3], 10, 8)
	encoding, err2 := strconv.ParseUint(fields[4], 10, 8)
	compression, err3 := strconv.ParseUint(fields[5], 10, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return apierrors.ErrCorruptedOpLog
	}
	schema := proto.MeasurementSchema{
		DataType:    proto.DataType(dataType),
		Encoding:    proto.Encoding(encoding),
		Compression: proto.Compression(compression),
	}
	if !schema.Valid() {
		return apierrors.ErrCorruptedOpLog
	}
	return m.tree.CreateTimeseries(p, schema, fields[2])
}

func (m *Manager) applyDeleteTimeseries(fields []string) error {
	if len(fields) != 2 {
		return apierrors.ErrCorruptedOpLog
	}
	p, err := proto.ParsePath(fields[1])
	if err != nil {
		return apierrors.ErrCorruptedOpLog
	}
	return m.tree.DeleteTimeseries(p)
}

func isBenignReplayError(err error) bool {
	switch err {
	case apierrors.ErrPathAlreadyExists,
		apierrors.ErrStorageGroupAlreadySet,
		apierrors.ErrAliasAlreadyExists,
		apierrors.ErrPathNotFound,
		apierrors.ErrStorageGroupNotSet:
		return true
	}
	return false
}
