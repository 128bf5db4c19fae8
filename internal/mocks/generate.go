// Package mocks provides gomock implementations of the interfaces in
// internal/ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockKVStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), "taskup_token").Return("", false, nil)
package mocks

// Generate mock for KVStore interface from internal/ports package.
// This creates MockKVStore with methods for all KVStore interface methods:
// Get, Set, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=kv_store_mock.go github.com/taskup/taskup-client/internal/ports KVStore

// Generate mock for APIDoer interface from internal/ports package.
// This creates MockAPIDoer with methods for all APIDoer interface methods:
// Do
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=api_doer_mock.go github.com/taskup/taskup-client/internal/ports APIDoer
