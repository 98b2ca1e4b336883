// Package syncthing is a versioned client for the syncthing REST API.
//
// The daemon's wire shapes changed between protocol generations, so
// the package keeps one concrete client per generation and normalises
// their responses into a single set of stable types. Callers probe the
// daemon version once after startup and then select a binding:
//
//	ver, err := syncthing.ProbeVersion(ctx, baseURL, apiKey)
//	if err != nil { ... }
//	client, err := syncthing.SelectClient(ver.Version, baseURL, apiKey)
//
// Errors fall into three buckets, distinguishable with errors.Is and
// errors.As: ErrUnavailable (could not reach the daemon), *APIError
// (daemon answered with a non-2xx status), and ErrProtocolMismatch
// (response did not decode, usually a wrong binding).
package syncthing
