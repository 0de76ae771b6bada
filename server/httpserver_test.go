package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/cubefs/cubefs/blobstore/common/rpc/auditlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/cubefs/metatree/meta"
	"github.com/cubefs/metatree/util"
	"github.com/cubefs/metatree/util/limiter"
)

func newTestServer(t *testing.T) (*httptest.Server, func()) {
	// auditlog.Open registers fixed-name collectors with the process-global
	// prometheus registry, so a second NewServer in the same test binary
	// would panic with a duplicate registration; give every test server a
	// fresh default registry. Nothing here gathers from it — /metrics serves
	// the module's own metrics.Registry.
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	metaPath, err := util.GenTmpPath()
	require.NoError(t, err)
	auditPath, err := util.GenTmpPath()
	require.NoError(t, err)

	srv, err := NewServer(&Config{
		MetaConfig: meta.Config{Dir: metaPath},
		AuditLog:   auditlog.Config{LogDir: auditPath},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(NewHttpServer(srv).newHandler())
	return ts, func() {
		ts.Close()
		srv.Close()
		os.RemoveAll(metaPath)
		os.RemoveAll(auditPath)
	}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, into interface{}) {
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestHttpServer(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	resp := postJSON(t, ts.URL+"/storagegroup/set", &meta.SetStorageGroupArgs{Path: "root.sg1", TTL: 86400000})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/storagegroup/set", &meta.SetStorageGroupArgs{Path: "root.sg1"})
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/storagegroup/set", &meta.SetStorageGroupArgs{Path: "sg1"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/timeseries/create", &meta.CreateTimeseriesArgs{
		Path:        "root.sg1.d1.s1",
		Alias:       "temperature",
		DataType:    4,
		Encoding:    5,
		Compression: 1,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/timeseries/create", &meta.CreateTimeseriesArgs{Path: "root.sg9.d1.s1"})
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/timeseries/create", &meta.CreateTimeseriesArgs{Path: "root.sg1.d1.s2", DataType: 200})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Get(ts.URL + "/node/get?path=root.sg1.d1.s1")
	require.NoError(t, err)
	info := &meta.NodeInfo{}
	decodeJSON(t, resp, info)
	require.Equal(t, "root.sg1.d1.s1", info.Path)
	require.Equal(t, "measurement", info.Type)
	require.Equal(t, "temperature", info.Alias)
	require.Equal(t, "double", info.DataType)

	resp, err = http.Get(ts.URL + "/node/get?path=root.none")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/timeseries/list?path=root.sg1.*.*")
	require.NoError(t, err)
	var series []*meta.TimeseriesInfo
	decodeJSON(t, resp, &series)
	require.Len(t, series, 1)
	require.Equal(t, "root.sg1.d1.s1", series[0].Path)
	require.Equal(t, "root.sg1", series[0].StorageGroup)

	resp, err = http.Get(ts.URL + "/storagegroup/list")
	require.NoError(t, err)
	var groups []*meta.StorageGroupInfo
	decodeJSON(t, resp, &groups)
	require.Len(t, groups, 1)
	require.Equal(t, "root.sg1", groups[0].Path)
	require.Equal(t, int64(86400000), groups[0].TTL)
	require.Equal(t, 1, groups[0].SeriesCount)

	resp, err = http.Get(ts.URL + "/storagegroup/of?path=root.sg1.d1.s1")
	require.NoError(t, err)
	of := &meta.StorageGroupOfResult{}
	decodeJSON(t, resp, of)
	require.Equal(t, "root.sg1", of.StorageGroup)

	resp, err = http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	stats := &meta.Stats{}
	decodeJSON(t, resp, stats)
	require.Equal(t, 1, stats.Series)
	require.Equal(t, 1, stats.StorageGroups)
	require.Equal(t, 4, stats.Nodes)

	resp = postJSON(t, ts.URL+"/checkpoint", struct{}{})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/timeseries/delete", &meta.DeleteTimeseriesArgs{Path: "root.sg1.d1.temperature"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/storagegroup/delete", &meta.DeleteStorageGroupArgs{Path: "root.sg1"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHttpServerLimit(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	resp := postJSON(t, ts.URL+"/limit/set", &limiter.LimitConfig{QueryConcurrency: 2, ReadMBPS: 10})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(ts.URL + "/limit/status")
	require.NoError(t, err)
	status := &limiter.Status{}
	decodeJSON(t, resp, status)
	require.Equal(t, 2, status.Config.QueryConcurrency)
	require.Equal(t, 10, status.Config.ReadMBPS)
	require.Equal(t, 0, status.QueryRunning)
}

func TestHttpServerMetrics(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "MetaTree_series_total")
}
