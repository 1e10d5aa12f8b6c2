// Package registrar keeps a third-party allow-list in step with the local
// store. The remote side is write-only from uidkeeper's point of view: its
// state is never read back, and a failed call does not undo or block the
// local change that triggered it.
package registrar
