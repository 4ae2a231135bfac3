// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for vitalit.
//
// This package defines the store interfaces that decouple storage
// implementation from the embedding and retrieval pipeline. All access is
// scoped by an owner partition key; a store never returns documents that
// belong to another owner.
//
// # Backends
//
//   - storage/badger: embedded BadgerDB store. No native vector search;
//     SearchByVector reports no results and retrieval falls back to
//     client-side scoring.
//   - storage/pgvector: PostgreSQL with the pgvector extension. Native
//     cosine search executes inside the database.
//
// # Constructor Return Type Pattern
//
// Public constructors return interface types to enforce abstraction and
// keep backends swappable:
//
//	store, err := badger.NewVectorStore(backend)  // returns storage.VectorStore
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from multiple goroutines.
package storage
