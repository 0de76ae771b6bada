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
	"strconv"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestPoolIntern(t *testing.T) {
	p := New()

	first := p.Intern("root.sg1.d1.s1")
	require.Equal(t, "root.sg1.d1.s1", first)
	require.Equal(t, 1, p.Len())

	// A second equal string adopts the first backing allocation.
	other := "root.sg1.d1.s" + strconv.Itoa(1)
	second := p.Intern(other)
	require.Equal(t, first, second)
	require.Same(t, unsafe.StringData(first), unsafe.StringData(second))
	require.Equal(t, 1, p.Len())

	p.Intern("root.sg1.d1.s2")
	require.Equal(t, 2, p.Len())

	p.Reset()
	require.Equal(t, 0, p.Len())
}

func TestPoolInternConcurrent(t *testing.T) {
	p := New()
	workers := 8
	rounds := 200

	results := make([][]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = make([]string, rounds)
			for j := 0; j < rounds; j++ {
				results[i][j] = p.Intern("root.sg." + strconv.Itoa(j))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, rounds, p.Len())
	for j := 0; j < rounds; j++ {
		canonical := results[0][j]
		for i := 1; i < workers; i++ {
			require.Same(t, unsafe.StringData(canonical), unsafe.StringData(results[i][j]))
		}
	}
}

func BenchmarkPoolIntern(b *testing.B) {
	p := New()
	paths := make([]string, 1024)
	for i := range paths {
		paths[i] = "root.sg" + strconv.Itoa(i%8) + ".d" + strconv.Itoa(i%64) + ".s" + strconv.Itoa(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Intern(paths[i%len(paths)])
	}
}
