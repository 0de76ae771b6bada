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

package stringpool

import (
	"sync"
	"sync/atomic"
)

// Pool deduplicates equal strings into one canonical shared instance. Full
// paths repeat heavily across a metadata tree, so letting every node adopt
// the pooled instance keeps one backing allocation per distinct path no
// matter how many nodes cache it.
//
// The pool never evicts. Entries for paths removed from the tree stay until
// Reset, which only tests should call on the Default pool.
type Pool struct {
	strings sync.Map
	count   int64
}

func New() *Pool {
	return &Pool{}
}

// Default is the process-wide pool used for node path caching.
var Default = New()

// Intern returns the canonical instance equal to s, registering s as the
// canonical instance if none exists yet. Concurrent callers racing on the
// same new string all converge on whichever registration won.
func (p *Pool) Intern(s string) string {
	if v, ok := p.strings.Load(s); ok {
		return v.(string)
	}
	v, loaded := p.strings.LoadOrStore(s, s)
	if !loaded {
		atomic.AddInt64(&p.count, 1)
	}
	return v.(string)
}

// Len returns the number of distinct strings registered.
func (p *Pool) Len() int {
	return int(atomic.LoadInt64(&p.count))
}

// Reset drops every registered string.
func (p *Pool) Reset() {
	p.strings.Range(func(key, _ interface{}) bool {
		p.strings.Delete(key)
		return true
	})
	atomic.StoreInt64(&p.count, 0)
}
