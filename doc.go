/*
 *
 * Copyright 2023 CubeFS authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

/*

# MetaTree: the timeseries metadata tree served standalone

## Why a dedicated metadata service?

1, keep the whole schema tree in RAM - path lookups and subtree walks never touch disk

2, one shared copy of every device path, interning instead of per-node duplication

3, restartable in seconds - snapshot + operation log instead of rebuilding from data files

## Data Model

* Storage Groups, Devices, and Measurements - one tree rooted at 'root'.

* Measurement, the leaf, path --> <data type, encoding, compression>, optionally reachable by an alias

* Device, the internal grouping level measurements hang off

* Storage Group, the subtree that shares a TTL and maps onto one storage engine instance. Storage groups never nest.

* Path, dot separated from the root, e.g. root.beijing.park.temperature


## Architecture

A MetaTree node is a single process:

* Manager - owns the tree, the operation log, and the checkpoint lifecycle

* HTTP API - RESTful endpoints for mutations, lookups, and admin

Mutations append one record to the operation log before they are acknowledged. Checkpoints rewrite the snapshot post-order so recovery is a single stack pass.

### Durability

snapshot + replayed operation log, torn tails dropped

### Concurrency

lock-free reads over sync.Map children; one writer at a time


## Building Blocks

* CubeFS blobstore common
* Prometheus
* x/sync, x/time

*/

package metatree
