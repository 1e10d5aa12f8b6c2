// Package config loads uidkeeper's YAML configuration.
//
// Config fields:
//   - Server.Addr           — HTTP listen address (default 0.0.0.0:50022)
//   - Log.Level             — debug | info | warn | error (default info)
//   - Store.Backend         — file | remote | sqlite | redis (default file)
//   - Store.Path            — JSON file (default uid_storage.json)
//   - Store.SnapshotURL     — read-only snapshot for the remote backend
//   - Registrar.BaseURL     — allow-list service root
//   - Registrar.KeyEnv      — environment variable holding the shared key
//   - Registrar.Timeout     — bound on each remote call (default 5s)
//   - Reconciler.Interval   — pause between expiry cycles (default 1s)
//   - Stream.Interval       — WebSocket snapshot period (default 5s)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads the file on change; the server applies the new
// log level and registrar settings without a restart.
package config
