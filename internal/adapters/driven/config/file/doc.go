// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigFile: JSON documents (config, aliases, credential records,
//     org membership) with line-accurate parse errors
//   - StateFiles: opens ConfigFiles in the global or project state folder
//   - SettingsStore: TOML-based tool runtime settings
//
// LoadProject reads the project file and warns about invalid keys.
//
// Watch reloads callers when a watched document changes on disk.
package file
