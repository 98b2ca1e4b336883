// Package supervisor manages the syncthing daemon process.
//
// syncthing is launched with -no-restart, which moves restart
// responsibility from the daemon to this package: when syncthing wants
// to restart (after a config change or an upgrade) it exits with a
// dedicated code and the supervisor relaunches it. The package provides:
//
//   - Configuration-driven argument and environment construction
//   - Log capture with optional device-ID redaction
//   - Exit code interpretation and implicit restart for codes 3 and 4
//   - Lifecycle events for subscribers (start, restart, output, stop)
//   - A /proc sweep to kill orphaned syncthing processes
//
// Example usage:
//
//	sup, err := supervisor.New(supervisor.Config{
//	    Binary:  "/usr/bin/syncthing",
//	    APIKey:  "k3y",
//	    Address: "127.0.0.1:8384",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sup.OnStopped(func(status supervisor.ExitStatus) { ... })
//
//	if err := sup.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer sup.Kill()
package supervisor
