// Copyright 2023 The Cuber Authors.
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

package limiter

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrQueryLimitExceeded is returned by AcquireQuery when the configured
// number of concurrent tree-walking queries is already running.
var ErrQueryLimitExceeded = errors.New("query limit exceeded")

type (
	// Limiter bounds the bulk I/O of checkpoint writing and recovery
	// reading, and caps concurrent expensive queries. A zero config value
	// leaves the matching dimension unlimited.
	Limiter interface {
		AcquireQuery() error
		ReleaseQuery()
		Reader(ctx context.Context, r io.Reader) io.Reader
		Writer(ctx context.Context, w io.Writer) io.Writer
		SetQueryConcurrency(value uint32)
		SetReadMBPS(mbps int)
		SetWriteMBPS(mbps int)
		GetConfig() *LimitConfig
		Status() Status
	}
	CountLimit interface {
		Running() int
		Acquire() error
		Release()
		SetLimit(limit uint32)
	}
	LimitConfig struct {
		QueryConcurrency int `json:"query_concurrency"`
		ReadMBPS         int `json:"read_mbps"`
		WriteMBPS        int `json:"write_mbps"`
	}
	Status struct {
		Config       LimitConfig `json:"config"`
		QueryRunning int         `json:"query_running"`
		ReadWaitMS   int         `json:"read_wait_ms"`
		WriteWaitMS  int         `json:"write_wait_ms"`
	}
	// reader limited reader
	reader struct {
		ctx        context.Context
		rate       *rate.Limiter
		underlying io.Reader
	}
	// writer limited writer
	writer struct {
		ctx        context.Context
		rate       *rate.Limiter
		underlying io.Writer
	}
	limiter struct {
		config          LimitConfig
		queryCountLimit CountLimit
		rateReader      *rate.Limiter
		rateWriter      *rate.Limiter
	}
)

func (r *reader) Read(p []byte) (n int, err error) {
	if err = r.rate.WaitN(r.ctx, len(p)); err != nil {
		return 0, err
	}
	n, err = r.underlying.Read(p)
	return
}

func (w *writer) Write(p []byte) (n int, err error) {
	if err = w.rate.WaitN(w.ctx, len(p)); err != nil {
		return 0, err
	}
	n, err = w.underlying.Write(p)
	return
}

func NewLimiter(cfg LimitConfig) Limiter {
	mb := 1 << 20
	limiter := &limiter{}
	if cfg.QueryConcurrency > 0 {
		limiter.queryCountLimit = NewCountLimit(cfg.QueryConcurrency)
	}
	if cfg.ReadMBPS > 0 {
		limiter.rateReader = rate.NewLimiter(rate.Limit(cfg.ReadMBPS*mb), cfg.ReadMBPS*mb)
	}
	if cfg.WriteMBPS > 0 {
		limiter.rateWriter = rate.NewLimiter(rate.Limit(cfg.WriteMBPS*mb), cfg.WriteMBPS*mb)
	}
	limiter.config = cfg

	return limiter
}

func (lim *limiter) AcquireQuery() error {
	if lim.queryCountLimit != nil {
		return lim.queryCountLimit.Acquire()
	}
	return nil
}

func (lim *limiter) ReleaseQuery() {
	if lim.queryCountLimit != nil {
		lim.queryCountLimit.Release()
	}
}

func (lim *limiter) Reader(ctx context.Context, r io.Reader) io.Reader {
	if lim.rateReader != nil {
		return &reader{
			ctx:        ctx,
			rate:       lim.rateReader,
			underlying: r,
		}
	}
	return r
}

func (lim *limiter) Writer(ctx context.Context, w io.Writer) io.Writer {
	if lim.rateWriter != nil {
		return &writer{
			ctx:        ctx,
			rate:       lim.rateWriter,
			underlying: w,
		}
	}
	return w
}

func (lim *limiter) SetQueryConcurrency(value uint32) {
	if lim.queryCountLimit == nil {
		lim.queryCountLimit = NewCountLimit(int(value))
	} else {
		lim.queryCountLimit.SetLimit(value)
	}
	lim.config.QueryConcurrency = int(value)
}

func (lim *limiter) SetReadMBPS(mbps int) {
	mb := 1 << 20
	if lim.rateReader == nil {
		lim.rateReader = rate.NewLimiter(rate.Limit(mbps*mb), mbps*mb)
	} else {
		lim.rateReader.SetLimit(rate.Limit(mbps * mb))
		lim.rateReader.SetBurst(mbps * mb)
	}
	lim.config.ReadMBPS = mbps
}

func (lim *limiter) SetWriteMBPS(mbps int) {
	mb := 1 << 20
	if lim.rateWriter == nil {
		lim.rateWriter = rate.NewLimiter(rate.Limit(mbps*mb), mbps*mb)
	} else {
		lim.rateWriter.SetLimit(rate.Limit(mbps * mb))
		lim.rateWriter.SetBurst(mbps * mb)
	}
	lim.config.WriteMBPS = mbps
}

func (lim *limiter) GetConfig() *LimitConfig {
	return &lim.config
}

func (lim *limiter) Status() Status {
	st := Status{
		Config: lim.config,
	}

	if lim.queryCountLimit != nil {
		st.QueryRunning = lim.queryCountLimit.Running()
	}
	if lim.rateReader != nil {
		st.ReadWaitMS = rateWait(lim.rateReader)
	}
	if lim.rateWriter != nil {
		st.WriteWaitMS = rateWait(lim.rateWriter)
	}

	return st
}

func rateWait(r *rate.Limiter) int {
	if r == nil {
		return 0
	}
	now := time.Now()
	reserve := r.ReserveN(now, int(r.Limit())/2)
	duration := reserve.DelayFrom(now)
	reserve.Cancel()
	return int(duration.Milliseconds())
}

const minusOne = ^uint32(0)

type countLimit struct {
	limit   uint32
	current uint32
}

// NewCountLimit returns limiter with concurrent n
func NewCountLimit(n int) CountLimit {
	return &countLimit{limit: uint32(n)}
}

func (l *countLimit) Running() int {
	return int(atomic.LoadUint32(&l.current))
}

func (l *countLimit) Acquire() error {
	if atomic.AddUint32(&l.current, 1) > atomic.LoadUint32(&l.limit) {
		atomic.AddUint32(&l.current, minusOne)
		return ErrQueryLimitExceeded
	}
	return nil
}

func (l *countLimit) Release() {
	atomic.AddUint32(&l.current, minusOne)
}

func (l *countLimit) SetLimit(limit uint32) {
	atomic.StoreUint32(&l.limit, limit)
}
