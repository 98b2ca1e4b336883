package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// State represents the supervisor's view of the syncthing process.
type State string

const (
	StateIdle       State = "idle"
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateRestarting State = "restarting"
	StateStopped    State = "stopped"
)

// belowNormalPriority is the nice value applied when LowPriority is set.
const belowNormalPriority = 10

// procCommLimit is the kernel's truncation length for /proc/PID/comm.
const procCommLimit = 15

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// proc is one launched syncthing process. done is closed by the exit
// watcher after Wait returns, before the watcher takes any lock, so a
// killer can wait on it for the exit to complete.
type proc struct {
	cmd        *exec.Cmd
	done       chan struct{}
	superseded bool
}

// Supervisor owns the lifecycle of a single syncthing process: it
// launches the binary, republishes filtered output, interprets exit
// codes, and performs the implicit restarts syncthing asks for.
//
// Two locks split the concerns: opMu serialises Start and Kill, which
// may block for the graceful-kill window, while mu guards the tracked
// process fields and is only ever held briefly. State, PID, and Stats
// take mu alone, so they answer promptly even mid-kill.
type Supervisor struct {
	config Config
	logger Logger
	*notifier

	// opMu serialises lifecycle operations (Start, Kill). Never held
	// by the exit watcher, so waiting on proc.done under it is safe.
	opMu sync.Mutex

	mu            sync.Mutex
	current       *proc
	state         State
	startTime     time.Time
	stopRequested bool
	restartCount  int
	burstCount    int
	burstStart    time.Time
	lastStatus    ExitStatus
	exited        bool
}

// New creates a supervisor for the given configuration. Defaults are
// applied for zero values before validation.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Binary == "" {
		cfg.Binary = "/usr/bin/syncthing"
	}
	if cfg.StabilityWindow == 0 {
		cfg.StabilityWindow = 60 * time.Second
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}
	if cfg.MaxImmediateRestarts == 0 {
		cfg.MaxImmediateRestarts = 5
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid supervisor config: %w", err)
	}

	return &Supervisor{
		config:   cfg,
		logger:   noopLogger{},
		notifier: newNotifier(),
		state:    StateIdle,
	}, nil
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	s.logger = logger
}

// Start launches syncthing.
//
// Any process the supervisor is already tracking is killed first, so
// Start is safe to call from any state and always converges on exactly
// one supervised process. The pre-start hook (OnStarting) fires before
// the binary is executed.
func (s *Supervisor) Start() error {
	s.emitStarting()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.state = StateStarting
	s.stopRequested = false
	s.mu.Unlock()

	if _, err := os.Stat(s.config.Binary); err != nil {
		err = fmt.Errorf("syncthing binary not found at %s: %w", s.config.Binary, err)
		s.failStart(err)
		return err
	}

	args := s.config.BuildArgs()
	env := s.config.BuildEnv()

	// A tracked process means a previous run is still alive (or a
	// previous Kill never completed). Remove it before launching so two
	// syncthing instances never fight over the same home directory.
	if err := s.killCurrent(true); err != nil {
		s.logger.Warn("failed to kill previous process before start", "error", err)
	}

	s.logger.Info("starting syncthing",
		"binary", s.config.Binary,
		"args", args,
	)

	cmd := exec.Command(s.config.Binary, args...) //nolint:gosec // Binary path comes from validated config
	cmd.Env = env

	// New process group so Kill can signal syncthing and any children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		err = fmt.Errorf("creating stdout pipe: %w", err)
		s.failStart(err)
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		err = fmt.Errorf("creating stderr pipe: %w", err)
		s.failStart(err)
		return err
	}

	if err := cmd.Start(); err != nil {
		err = fmt.Errorf("starting syncthing: %w", err)
		s.failStart(err)
		return err
	}

	p := &proc{cmd: cmd, done: make(chan struct{})}
	s.mu.Lock()
	s.current = p
	s.state = StateRunning
	s.startTime = time.Now()
	s.exited = false
	s.mu.Unlock()

	if s.config.LowPriority {
		if err := syscall.Setpriority(syscall.PRIO_PROCESS, cmd.Process.Pid, belowNormalPriority); err != nil {
			s.logger.Warn("failed to lower process priority", "pid", cmd.Process.Pid, "error", err)
		}
	}

	go s.readOutput("stdout", stdout)
	go s.readOutput("stderr", stderr)
	go s.watchExit(p)

	s.logger.Info("syncthing started", "pid", cmd.Process.Pid)

	return nil
}

// failStart records a failed launch attempt and notifies subscribers.
func (s *Supervisor) failStart(err error) {
	s.logger.Error("failed to start syncthing", "error", err)

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.emitStartError(err)
}

// readOutput republishes the stream line by line. Blank lines are
// dropped; device IDs are redacted when configured.
func (s *Supervisor) readOutput(stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		line = FilterLine(line, s.config.HideDeviceIDs)

		s.logger.Debug("syncthing output", "stream", stream, "line", line)
		s.emitMessage(line)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Debug("output stream closed", "stream", stream, "error", err)
	}
}

// watchExit waits for the process to exit and interprets the result.
// The implicit restart for exit codes 3 and 4 re-enters Start with the
// lock released, so it cannot deadlock against itself.
func (s *Supervisor) watchExit(p *proc) {
	waitErr := p.cmd.Wait()

	// Closed before taking the lock so a locked killer can wait on it.
	close(p.done)

	s.mu.Lock()

	if p.superseded {
		// A newer Start replaced this process; its exit is not a
		// lifecycle transition.
		s.mu.Unlock()
		s.logger.Debug("superseded process exited")
		return
	}

	if s.current != nil && s.current.cmd == p.cmd {
		s.current = nil
	}
	s.exited = true

	code := p.cmd.ProcessState.ExitCode()
	status, known := StatusFromExitCode(code)
	s.lastStatus = status
	stopRequested := s.stopRequested

	s.mu.Unlock()

	if !known && !stopRequested {
		s.logger.Warn("unrecognised syncthing exit code, treating as error",
			"code", code,
			"error", waitErr,
		)
	}

	s.logger.Info("syncthing exited", "code", code, "status", status.String())

	if status.ShouldRestart() && !stopRequested {
		s.restartAfterExit(status)
		return
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.emitStopped(status)
}

// restartAfterExit relaunches syncthing after a restart-flavoured exit,
// bounded so a crash loop of immediate restarts cannot spin forever.
func (s *Supervisor) restartAfterExit(status ExitStatus) {
	s.mu.Lock()
	now := time.Now()
	if s.burstStart.IsZero() || now.Sub(s.burstStart) > s.config.StabilityWindow {
		s.burstStart = now
		s.burstCount = 0
	}
	s.burstCount++
	s.restartCount++
	burst := s.burstCount
	s.state = StateRestarting
	s.mu.Unlock()

	if s.config.MaxImmediateRestarts > 0 && burst > s.config.MaxImmediateRestarts {
		s.logger.Error("too many restarts in quick succession, giving up",
			"restarts", burst,
			"window", s.config.StabilityWindow,
		)
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		s.emitStopped(StatusError)
		return
	}

	s.logger.Info("restarting syncthing", "reason", status.String(), "attempt", burst)
	s.emitRestarted()

	if err := s.Start(); err != nil {
		// Start already logged and raised the start-error event; the
		// run ends here.
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		s.emitStopped(StatusError)
	}
}

// Kill terminates the supervised process. It is a no-op when nothing is
// tracked, and races with the process exiting on its own are logged and
// swallowed.
func (s *Supervisor) Kill() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.stopRequested = true
	s.mu.Unlock()

	return s.killCurrent(false)
}

// killCurrent stops the tracked process. SIGTERM first, escalating to
// SIGKILL after the graceful timeout. Callers hold opMu; mu is taken
// only to detach the process, so state reads stay responsive through
// the graceful window. The exit watcher closes done without needing
// either lock, so waiting here is safe.
//
// With supersede set (the kill-before-start path) the process is
// detached first, so its exit raises no lifecycle events. A plain Kill
// leaves it tracked: the exit watcher still reports the stop.
func (s *Supervisor) killCurrent(supersede bool) error {
	s.mu.Lock()
	p := s.current
	if p == nil || p.cmd.Process == nil {
		s.mu.Unlock()
		return nil
	}
	if supersede {
		s.current = nil
		p.superseded = true
	}
	s.mu.Unlock()

	pid := p.cmd.Process.Pid
	s.logger.Info("killing syncthing", "pid", pid)

	// Signal the whole process group (created via Setpgid).
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			s.logger.Debug("process already exited", "pid", pid)
			<-p.done
			return nil
		}
		s.logger.Warn("failed to signal process group", "pid", pid, "error", err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(s.config.GracefulTimeout):
		s.logger.Warn("graceful shutdown timeout, sending SIGKILL", "pid", pid)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing process group %d: %w", pid, err)
	}

	<-p.done
	return nil
}

// KillAllMatching sweeps /proc for processes whose command name matches
// the supervised binary and kills them. This is the recovery hammer for
// orphaned syncthing instances left behind by a previous run.
//
// Returns how many matching processes were found and how many were
// actually killed; processes that cannot be signalled count as found.
func (s *Supervisor) KillAllMatching() (found, killed int) {
	target := filepath.Base(s.config.Binary)
	// comm is truncated by the kernel; compare what fits.
	if len(target) > procCommLimit {
		target = target[:procCommLimit]
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		s.logger.Warn("cannot read /proc for process sweep", "error", err)
		return 0, 0
	}

	self := os.Getpid()

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}

		comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) != target {
			continue
		}

		found++
		if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
			s.logger.Warn("failed to kill process", "pid", pid, "error", err)
			continue
		}
		killed++
		s.logger.Info("killed stray process", "pid", pid, "comm", target)
	}

	return found, killed
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsRunning returns true if a supervised process is currently running.
func (s *Supervisor) IsRunning() bool {
	return s.State() == StateRunning
}

// PID returns the supervised process ID, or 0 if nothing is tracked.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.cmd.Process != nil {
		return s.current.cmd.Process.Pid
	}
	return 0
}

// LastStatus returns the interpreted status of the most recent exit.
// The second return value is false until the first exit happens.
func (s *Supervisor) LastStatus() (ExitStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus, s.exited
}

// Stats holds a snapshot of the supervised process.
type Stats struct {
	State        State         `json:"state"`
	PID          int           `json:"pid,omitempty"`
	Uptime       time.Duration `json:"uptime,omitempty"`
	RestartCount int           `json:"restart_count"`
	LastStatus   string        `json:"last_status,omitempty"`
}

// Stats returns current statistics for the supervised process.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		State:        s.state,
		RestartCount: s.restartCount,
	}

	if s.current != nil && s.current.cmd.Process != nil {
		stats.PID = s.current.cmd.Process.Pid
	}
	if s.state == StateRunning {
		stats.Uptime = time.Since(s.startTime)
	}
	if s.exited {
		stats.LastStatus = s.lastStatus.String()
	}

	return stats
}
