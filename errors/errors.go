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

package errors

import "errors"

var (
	ErrIllegalPath   = errors.New("illegal path")
	ErrIllegalSchema = errors.New("illegal measurement schema")

	ErrPathNotFound      = errors.New("path does not exist")
	ErrPathAlreadyExists = errors.New("path already exists")

	ErrStorageGroupNotSet     = errors.New("storage group not set for path")
	ErrStorageGroupAlreadySet = errors.New("storage group already set")
	ErrStorageGroupNesting    = errors.New("storage groups can not be nested")

	ErrAliasAlreadyExists = errors.New("alias already exists")

	ErrCorruptedSnapshot = errors.New("corrupted snapshot")
	ErrCorruptedOpLog    = errors.New("corrupted operation log")

	ErrManagerClosed = errors.New("manager is closed")
)
