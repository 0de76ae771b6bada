package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cubefs/cubefs/blobstore/common/profile"
	"github.com/cubefs/cubefs/blobstore/common/rpc"
	"github.com/cubefs/cubefs/blobstore/util/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "github.com/cubefs/metatree/errors"
	"github.com/cubefs/metatree/meta"
	"github.com/cubefs/metatree/metrics"
	"github.com/cubefs/metatree/proto"
	"github.com/cubefs/metatree/util/limiter"
)

const (
	defaultShutdownTimeoutS      = 10
	defaultReadRequestTimeoutS   = 30
	defaultWriteResponseTimeoutS = 30
)

type HttpServer struct {
	httpServer *http.Server

	*Server
}

func NewHttpServer(server *Server) *HttpServer {
	return &HttpServer{Server: server}
}

func (h *HttpServer) Serve(addr string) {
	ph := profile.NewProfileHandler(addr)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      rpc.MiddlewareHandlerWith(h.newHandler(), h.logHandler, ph),
		ReadTimeout:  defaultReadRequestTimeoutS * time.Second,
		WriteTimeout: defaultWriteResponseTimeoutS * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server exits:", err)
		}
	}()
	h.httpServer = httpServer

	log.Info("http server is running at:", addr)
}

func (h *HttpServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeoutS*time.Second)
	defer cancel()

	h.httpServer.Shutdown(ctx)
}

func init() {
	rpc.RegisterArgsParser(&meta.GetNodeArgs{}, "json")
	rpc.RegisterArgsParser(&meta.ListTimeseriesArgs{}, "json")
	rpc.RegisterArgsParser(&meta.StorageGroupOfArgs{}, "json")
}

func (h *HttpServer) newHandler() *rpc.Router {
	router := rpc.New()
	router.Handle(http.MethodPost, "/storagegroup/set", h.SetStorageGroup, rpc.OptArgsBody())
	router.Handle(http.MethodPost, "/storagegroup/delete", h.DeleteStorageGroup, rpc.OptArgsBody())
	router.Handle(http.MethodGet, "/storagegroup/list", h.ListStorageGroups)
	router.Handle(http.MethodGet, "/storagegroup/of", h.StorageGroupOf, rpc.OptArgsQuery())
	router.Handle(http.MethodPost, "/timeseries/create", h.CreateTimeseries, rpc.OptArgsBody())
	router.Handle(http.MethodPost, "/timeseries/delete", h.DeleteTimeseries, rpc.OptArgsBody())
	router.Handle(http.MethodGet, "/timeseries/list", h.ListTimeseries, rpc.OptArgsQuery())
	router.Handle(http.MethodGet, "/node/get", h.GetNode, rpc.OptArgsQuery())
	router.Handle(http.MethodGet, "/stats", h.Stats)
	router.Handle(http.MethodPost, "/checkpoint", h.Checkpoint)
	router.Handle(http.MethodGet, "/limit/status", h.LimitStatus)
	router.Handle(http.MethodPost, "/limit/set", h.SetLimit, rpc.OptArgsBody())
	router.Handle(http.MethodGet, "/metrics", h.Metrics)
	return router
}

func (h *HttpServer) SetStorageGroup(c *rpc.Context) {
	args := new(meta.SetStorageGroupArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	if err := h.manager.SetStorageGroup(c.Request.Context(), args.Path, args.TTL); err != nil {
		c.RespondError(httpError(err))
		return
	}
	c.RespondStatus(http.StatusOK)
}

func (h *HttpServer) DeleteStorageGroup(c *rpc.Context) {
	args := new(meta.DeleteStorageGroupArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	if err := h.manager.DeleteStorageGroup(c.Request.Context(), args.Path); err != nil {
		c.RespondError(httpError(err))
		return
	}
	c.RespondStatus(http.StatusOK)
}

func (h *HttpServer) ListStorageGroups(c *rpc.Context) {
	c.RespondJSON(h.manager.ListStorageGroups(c.Request.Context()))
}

func (h *HttpServer) StorageGroupOf(c *rpc.Context) {
	args := new(meta.StorageGroupOfArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	sg, err := h.manager.StorageGroupOf(c.Request.Context(), args.Path)
	if err != nil {
		c.RespondError(httpError(err))
		return
	}
	c.RespondJSON(&meta.StorageGroupOfResult{StorageGroup: sg})
}

func (h *HttpServer) CreateTimeseries(c *rpc.Context) {
	args := new(meta.CreateTimeseriesArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	schema := proto.MeasurementSchema{
		DataType:    proto.DataType(args.DataType),
		Encoding:    proto.Encoding(args.Encoding),
		Compression: proto.Compression(args.Compression),
	}
	if err := h.manager.CreateTimeseries(c.Request.Context(), args.Path, schema, args.Alias); err != nil {
		c.RespondError(httpError(err))
		return
	}
	c.RespondStatus(http.StatusOK)
}

func (h *HttpServer) DeleteTimeseries(c *rpc.Context) {
	args := new(meta.DeleteTimeseriesArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	if err := h.manager.DeleteTimeseries(c.Request.Context(), args.Path); err != nil {
		c.RespondError(httpError(err))
		return
	}
	c.RespondStatus(http.StatusOK)
}

func (h *HttpServer) ListTimeseries(c *rpc.Context) {
	args := new(meta.ListTimeseriesArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	series, err := h.manager.ListTimeseries(c.Request.Context(), args.Path)
	if err != nil {
		c.RespondError(httpError(err))
		return
	}
	c.RespondJSON(series)
}

func (h *HttpServer) GetNode(c *rpc.Context) {
	args := new(meta.GetNodeArgs)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	info, err := h.manager.GetNode(c.Request.Context(), args.Path)
	if err != nil {
		c.RespondError(httpError(err))
		return
	}
	c.RespondJSON(info)
}

func (h *HttpServer) Stats(c *rpc.Context) {
	c.RespondJSON(h.manager.Stats(c.Request.Context()))
}

func (h *HttpServer) Checkpoint(c *rpc.Context) {
	if err := h.manager.Checkpoint(c.Request.Context()); err != nil {
		c.RespondError(httpError(err))
		return
	}
	c.RespondStatus(http.StatusOK)
}

func (h *HttpServer) LimitStatus(c *rpc.Context) {
	c.RespondJSON(h.manager.Limiter().Status())
}

func (h *HttpServer) SetLimit(c *rpc.Context) {
	args := new(limiter.LimitConfig)
	if err := c.ParseArgs(args); err != nil {
		c.RespondError(err)
		return
	}
	l := h.manager.Limiter()
	if args.QueryConcurrency > 0 {
		l.SetQueryConcurrency(uint32(args.QueryConcurrency))
	}
	if args.ReadMBPS > 0 {
		l.SetReadMBPS(args.ReadMBPS)
	}
	if args.WriteMBPS > 0 {
		l.SetWriteMBPS(args.WriteMBPS)
	}
	c.RespondStatus(http.StatusOK)
}

func (h *HttpServer) Metrics(c *rpc.Context) {
	promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}

func httpError(err error) error {
	switch err {
	case apierrors.ErrIllegalPath, apierrors.ErrIllegalSchema:
		return rpc.NewError(http.StatusBadRequest, "BadRequest", err)
	case apierrors.ErrPathNotFound, apierrors.ErrStorageGroupNotSet:
		return rpc.NewError(http.StatusNotFound, "NotFound", err)
	case apierrors.ErrPathAlreadyExists, apierrors.ErrStorageGroupAlreadySet,
		apierrors.ErrStorageGroupNesting, apierrors.ErrAliasAlreadyExists:
		return rpc.NewError(http.StatusConflict, "Conflict", err)
	case limiter.ErrQueryLimitExceeded:
		return rpc.NewError(http.StatusTooManyRequests, "TooManyRequests", err)
	case apierrors.ErrManagerClosed:
		return rpc.NewError(http.StatusServiceUnavailable, "ServiceUnavailable", err)
	default:
		return err
	}
}
