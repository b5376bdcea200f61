// Package mocks provides test doubles for ports interfaces.
//
// These mocks are designed to be simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior backed by the in-memory storage backend
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Call counters for asserting which collaborators ran
//
// # Usage Example
//
//	func TestMyService(t *testing.T) {
//		store := mocks.NewStore()
//		store.StoreDocumentFn = func(context.Context, domain.ArchivedDocument) (string, error) {
//			return "", errBoom
//		}
//
//		svc := NewService(store)
//		// ... test service behavior
//	}
//
// # Available Mocks
//
//   - Store: implements ports.Store
//   - Embedder: deterministic sentence and document embeddings
package mocks
