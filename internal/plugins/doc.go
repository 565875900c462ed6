// Package plugins defines the plugin-host collaborator contract.
//
// The host reports which plugins are currently deployed (including builtin
// ones), signals readiness through WillStart, and notifies on plugin-list
// changes. The extensions model consumes this interface only; transport to
// the real plugin runtime lives behind it.
package plugins
