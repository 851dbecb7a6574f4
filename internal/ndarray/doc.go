// Package ndarray defines the resource-ownership tree shared by every engine.
//
// A Manager is a node in the tree. Every NDArray and every sub-manager is
// attached to exactly one Manager, and closing a Manager closes everything
// below it depth-first: descendants release their native storage before the
// node releases its own context. Each engine supplies one concrete Manager
// and NDArray type; the tree bookkeeping they share lives in Scope and
// ArrayBase.
//
// Every engine also owns a system Manager. It is built non-closable, ignores
// Attach, Detach and Close, and lives for the whole process.
//
// Arrays move between engines through their byte representation:
//
//	dst, err := otherManager.From(src) // identity when src already belongs to that engine
//
// Managers guard their children with a mutex, so allocation from several
// goroutines is safe. Closing a Manager while another goroutine is still
// using its arrays is the caller's responsibility.
package ndarray
