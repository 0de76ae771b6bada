// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package server

import (
	"context"

	"github.com/cubefs/cubefs/blobstore/common/rpc"
	"github.com/cubefs/cubefs/blobstore/common/rpc/auditlog"
	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/cubefs/cubefs/blobstore/util/errors"

	"github.com/cubefs/metatree/meta"
)

type Config struct {
	MetaConfig meta.Config     `json:"meta_config"`
	AuditLog   auditlog.Config `json:"audit_log"`
}

type Server struct {
	manager *meta.Manager

	logHandler   rpc.ProgressHandler
	auditLogFile auditlog.LogCloser
}

func NewServer(cfg *Config) (*Server, error) {
	span, ctx := trace.StartSpanFromContext(context.Background(), "")

	logHandler, logFile, err := auditlog.Open("METATREE", &cfg.AuditLog)
	if err != nil {
		return nil, errors.Info(err, "open audit log failed")
	}

	manager, err := meta.NewManager(ctx, &cfg.MetaConfig)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	span.Info("server created")
	return &Server{
		manager:      manager,
		logHandler:   logHandler,
		auditLogFile: logFile,
	}, nil
}

func (s *Server) Close() {
	span, ctx := trace.StartSpanFromContext(context.Background(), "")

	// One last snapshot keeps the restart replay short.
	if err := s.manager.Checkpoint(ctx); err != nil {
		span.Warnf("final checkpoint failed: %s", errors.Detail(err))
	}
	if err := s.manager.Close(); err != nil {
		span.Warnf("close manager failed: %s", errors.Detail(err))
	}
	s.auditLogFile.Close()
}
