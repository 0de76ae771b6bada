package mlog

import (
	"bytes"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf, nil)
	require.NoError(t, w.WriteLine("0,root,1"))
	require.NoError(t, w.WriteRecord("0", "root.sg1.d1.s1", "temp"))
	require.NoError(t, w.WriteRecord("2"))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Sync())

	require.Equal(t, "0,root,1\n0,root.sg1.d1.s1,temp\n2\n", buf.String())

	r := NewReader(bytes.NewReader(buf.Bytes()), nil)
	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "0,root,1", line)

	fields, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, []string{"0", "root.sg1.d1.s1", "temp"}, fields)

	fields, err = r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, fields)

	_, err = r.ReadLine()
	require.Equal(t, io.EOF, err)
	require.NoError(t, r.Close())
}

func TestReaderTornTail(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("0,root,1\n1,sg")), nil)

	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "0,root,1", line)

	line, err = r.ReadLine()
	require.Equal(t, io.ErrUnexpectedEOF, err)
	require.Equal(t, "1,sg", line)

	_, err = r.ReadRecord()
	require.Equal(t, io.EOF, err)
}

func TestDir(t *testing.T) {
	dir, err := OpenDir(t.TempDir() + "/meta")
	require.NoError(t, err)

	exists, err := dir.Exists("meta.log")
	require.NoError(t, err)
	require.False(t, exists)

	f, err := dir.CreateFile("meta.snapshot.tmp-1")
	require.NoError(t, err)
	w := NewWriter(f, f)
	require.NoError(t, w.WriteLine("0,root,0"))
	require.NoError(t, w.Close())

	require.NoError(t, dir.Rename("meta.snapshot.tmp-1", "meta.snapshot"))
	exists, err = dir.Exists("meta.snapshot")
	require.NoError(t, err)
	require.True(t, exists)

	f, err = dir.AppendFile("meta.log")
	require.NoError(t, err)
	w = NewWriter(f, f)
	require.NoError(t, w.WriteRecord("2", "root.sg1"))
	require.NoError(t, w.Close())

	f, err = dir.AppendFile("meta.log")
	require.NoError(t, err)
	w = NewWriter(f, f)
	require.NoError(t, w.WriteRecord("3", "root.sg1"))
	require.NoError(t, w.Close())

	rf, err := dir.OpenFile("meta.log")
	require.NoError(t, err)
	r := NewReader(rf, rf)
	fields, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, []string{"2", "root.sg1"}, fields)
	fields, err = r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, []string{"3", "root.sg1"}, fields)
	_, err = r.ReadRecord()
	require.Equal(t, io.EOF, err)
	require.NoError(t, r.Close())

	names, err := dir.List()
	require.NoError(t, err)
	sort.Strings(names)
	require.Equal(t, []string{"meta.log", "meta.snapshot"}, names)

	require.NoError(t, dir.Truncate("meta.log", 11))
	rf, err = dir.OpenFile("meta.log")
	require.NoError(t, err)
	r = NewReader(rf, rf)
	fields, err = r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, []string{"2", "root.sg1"}, fields)
	_, err = r.ReadRecord()
	require.Equal(t, io.EOF, err)
	require.NoError(t, r.Close())

	require.NoError(t, dir.Remove("meta.log"))
	exists, err = dir.Exists("meta.log")
	require.NoError(t, err)
	require.False(t, exists)
}
